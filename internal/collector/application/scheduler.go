package application

import (
	"context"
	"log"
	"time"
)

// Scheduler triggers collection cycles on a fixed interval.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   *log.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(service *Service, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{service: service, interval: interval, logger: logger}
}

// Start runs one immediate cycle and then loops until ctx is done.
// Cycle errors are logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.service == nil {
		return
	}

	if err := s.service.CollectOnce(ctx); err != nil && s.logger != nil {
		s.logger.Printf("collect error: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.service.CollectOnce(ctx); err != nil && s.logger != nil {
				s.logger.Printf("collect error: %v", err)
			}
		}
	}
}
