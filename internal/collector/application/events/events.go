package events

import (
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// SampleRecorded is published after a sample lands in the store.
type SampleRecorded struct {
	Sample     occupancy.Sample
	RecordedAt time.Time
}
