package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cragwatch/internal/collector/application/events"
	collector "cragwatch/internal/collector/domain"
	"cragwatch/internal/observability/metrics"
	occupancy "cragwatch/internal/occupancy/domain"
	"cragwatch/internal/occupancy/infrastructure/memory"
)

// Clock provides time for the collector.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Archive persists samples beyond the process lifetime.
type Archive interface {
	Insert(ctx context.Context, sample occupancy.Sample) error
	LoadSince(ctx context.Context, cutoff time.Time) ([]occupancy.Sample, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher publishes collection events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Service runs one collection cycle: scrape, record, prune, report status.
// It is the single writer of the sample store.
type Service struct {
	source    collector.Source
	store     *memory.SampleStore
	archive   Archive
	publisher Publisher
	clock     Clock
	retention time.Duration
	logger    *log.Logger

	mu     sync.RWMutex
	status collector.Status
}

// NewService constructs a collection service. archive and publisher may be
// nil; the service then runs memory-only and silent.
func NewService(source collector.Source, store *memory.SampleStore, archive Archive, publisher Publisher, clock Clock, retention time.Duration, logger *log.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New("collector: nil source")
	}
	if store == nil {
		return nil, errors.New("collector: nil store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	return &Service{
		source:    source,
		store:     store,
		archive:   archive,
		publisher: publisher,
		clock:     clock,
		retention: retention,
		logger:    logger,
	}, nil
}

// CollectOnce performs a single scrape-and-record cycle. A scrape failure
// updates the status record and returns the error; nothing here is fatal.
func (s *Service) CollectOnce(ctx context.Context) error {
	started := s.clock.Now()

	reading, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.ObserveScrape(metrics.ResultError, s.clock.Now().Sub(started))
		s.setStatus(collector.Status{LastRun: started, Success: false, Message: err.Error()})
		return err
	}

	sample, err := occupancy.NewSample(started, reading.Lead, reading.Boulder, reading.OpenSectors)
	if err != nil {
		metrics.ObserveScrape(metrics.ResultError, s.clock.Now().Sub(started))
		s.setStatus(collector.Status{LastRun: started, Success: false, Message: err.Error()})
		return err
	}

	s.store.Append(sample)
	pruned := s.store.Prune(started.Add(-s.retention))
	metrics.AddSamplesPruned(pruned)
	metrics.SetSamplesStored(s.store.Len())

	if s.archive != nil {
		if err := s.archive.Insert(ctx, sample); err != nil {
			s.logf("archive insert error: %v", err)
		}
		if _, err := s.archive.PruneBefore(ctx, started.Add(-s.retention)); err != nil {
			s.logf("archive prune error: %v", err)
		}
	}

	s.setStatus(collector.Status{LastRun: started, Success: true, Message: "ok", Data: &sample})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.SampleRecorded{Sample: sample, RecordedAt: started}); err != nil {
			s.logf("publish error: %v", err)
		}
	}

	metrics.ObserveScrape(metrics.ResultSuccess, s.clock.Now().Sub(started))
	return nil
}

// Restore loads the retained window from the archive into the store.
func (s *Service) Restore(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}
	samples, err := s.archive.LoadSince(ctx, s.clock.Now().Add(-s.retention))
	if err != nil {
		return err
	}
	s.store.Replace(samples)
	metrics.SetSamplesStored(s.store.Len())
	return nil
}

// Status returns the most recent run status.
func (s *Service) Status() collector.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Service) setStatus(status collector.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
