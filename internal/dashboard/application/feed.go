package application

import (
	"context"

	collector "cragwatch/internal/collector/domain"
	occupancy "cragwatch/internal/occupancy/domain"
	"cragwatch/internal/occupancy/infrastructure/memory"
)

// Feed supplies the dashboard with samples and scrape status. The two
// fetches fail independently: a broken status endpoint must not take the
// charts down, and vice versa.
type Feed interface {
	Samples(ctx context.Context) ([]occupancy.Sample, error)
	Status(ctx context.Context) (collector.Status, error)
}

// StatusProvider reports the collector's last scrape outcome.
type StatusProvider interface {
	Status() collector.Status
}

// LocalFeed serves the dashboard straight from the in-process sample store,
// for the single-binary deployment where collector and dashboard share a
// process.
type LocalFeed struct {
	store  *memory.SampleStore
	status StatusProvider
}

// NewLocalFeed wires a feed over the given store and status provider.
func NewLocalFeed(store *memory.SampleStore, status StatusProvider) *LocalFeed {
	return &LocalFeed{store: store, status: status}
}

// Samples returns a snapshot of the stored samples.
func (f *LocalFeed) Samples(_ context.Context) ([]occupancy.Sample, error) {
	return f.store.Snapshot(), nil
}

// Status returns the collector's last scrape status.
func (f *LocalFeed) Status(_ context.Context) (collector.Status, error) {
	if f.status == nil {
		return collector.Status{}, nil
	}
	return f.status.Status(), nil
}
