package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cragwatch/internal/dashboard/application/events"
	dashboard "cragwatch/internal/dashboard/domain"
	"cragwatch/internal/observability/metrics"

	collector "cragwatch/internal/collector/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

// Publisher publishes dashboard events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Refresher keeps the dashboard view current: it pulls a fresh sample
// snapshot on an interval, rebuilds the selected view, and announces the
// rebuild. The sample and status fetches degrade independently.
type Refresher struct {
	feed      Feed
	selector  *dashboard.Selector
	publisher Publisher
	clock     dashboard.Clock
	interval  time.Duration
	logger    *log.Logger

	mu     sync.RWMutex
	mode   dashboard.ViewMode
	status collector.Status
}

// NewRefresher builds a refresher starting in the given mode.
func NewRefresher(feed Feed, selector *dashboard.Selector, publisher Publisher, clock dashboard.Clock, mode dashboard.ViewMode, interval time.Duration, logger *log.Logger) (*Refresher, error) {
	if feed == nil {
		return nil, errors.New("dashboard: nil feed")
	}
	if selector == nil {
		return nil, errors.New("dashboard: nil selector")
	}
	if _, err := dashboard.ParseViewMode(string(mode)); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = dashboard.SystemClock{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		feed:      feed,
		selector:  selector,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		mode:      mode,
		logger:    logger,
	}, nil
}

// Start refreshes immediately, then on every tick until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.RefreshOnce(ctx); err != nil {
		r.logf("refresh error: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				r.logf("refresh error: %v", err)
			}
		}
	}
}

// RefreshOnce rebuilds the current view from a fresh snapshot. When the
// sample fetch fails the view is rebuilt empty rather than left stale, so
// the page shows "no data" instead of silently frozen charts. The status
// fetch failing only blanks the status line.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	started := r.clock.Now()
	mode := r.Mode()

	status, statusErr := r.feed.Status(ctx)
	r.setStatus(status, statusErr)

	samples, samplesErr := r.feed.Samples(ctx)
	if samplesErr != nil {
		samples = nil
	}

	view, err := r.selector.Rebuild(mode, samples)
	if err != nil {
		metrics.ObserveRefresh(metrics.ResultError, r.clock.Now().Sub(started))
		return err
	}
	if view.Err != "" {
		metrics.IncViewBuildError(string(mode))
	}

	r.announce(ctx, mode)
	metrics.ObserveRefresh(metrics.ResultSuccess, r.clock.Now().Sub(started))

	if samplesErr != nil {
		return samplesErr
	}
	return statusErr
}

// SetMode switches the active view mode and rebuilds right away.
func (r *Refresher) SetMode(ctx context.Context, mode dashboard.ViewMode) (dashboard.View, error) {
	if _, err := dashboard.ParseViewMode(string(mode)); err != nil {
		return dashboard.View{}, err
	}
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()

	if err := r.RefreshOnce(ctx); err != nil {
		return r.selector.View(), err
	}
	return r.selector.View(), nil
}

// Mode returns the active view mode.
func (r *Refresher) Mode() dashboard.ViewMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// View returns the last built view.
func (r *Refresher) View() dashboard.View {
	return r.selector.View()
}

// DrillDown opens a single-day chart from the current peak view.
func (r *Refresher) DrillDown(day occupancy.DayKey) (dashboard.View, error) {
	return r.selector.DrillDown(day)
}

// CloseDrillDown returns from a drill-down to the peak bars.
func (r *Refresher) CloseDrillDown() dashboard.View {
	return r.selector.CloseDrillDown()
}

// Status returns the last fetched collector status. ok is false when the
// most recent status fetch failed.
func (r *Refresher) Status() (collector.Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status, !r.status.LastRun.IsZero()
}

func (r *Refresher) setStatus(status collector.Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.status = collector.Status{}
		return
	}
	r.status = status
}

func (r *Refresher) announce(ctx context.Context, mode dashboard.ViewMode) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, events.ViewRefreshed{Mode: mode, At: r.clock.Now()}); err != nil {
		r.logf("publish error: %v", err)
	}
}

func (r *Refresher) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
