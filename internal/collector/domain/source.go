package collector

import (
	"context"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// Reading is one extraction from the gym's public occupancy page.
// Nil percentages mean the page did not show that area.
type Reading struct {
	Lead        *int
	Boulder     *int
	OpenSectors string
}

// Source produces occupancy readings, typically by scraping.
// It either returns a full reading or fails; there is no partial result.
type Source interface {
	Fetch(ctx context.Context) (Reading, error)
}

// Status describes the most recent collection run.
type Status struct {
	LastRun time.Time         `json:"lastRun"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *occupancy.Sample `json:"data"`
}
