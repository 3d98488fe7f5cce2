package occupancy

import (
	"fmt"
	"time"
)

// Sample is one scraped occupancy reading.
// Percent values are integers in [0,100]; nil means the reading was absent.
// Samples are immutable once recorded.
type Sample struct {
	Time        time.Time `json:"time"`
	Lead        *int      `json:"lead"`
	Boulder     *int      `json:"boulder"`
	Overall     *int      `json:"overall"`
	OpenSectors string    `json:"openSectors,omitempty"`
}

// NewSample builds a validated sample. Overall is derived, never passed in:
// the rounded mean of lead and boulder when both are present, else whichever
// is present, else nil.
func NewSample(at time.Time, lead, boulder *int, openSectors string) (Sample, error) {
	if at.IsZero() {
		return Sample{}, ErrZeroTimestamp
	}
	if err := validatePercent(lead); err != nil {
		return Sample{}, fmt.Errorf("lead: %w", err)
	}
	if err := validatePercent(boulder); err != nil {
		return Sample{}, fmt.Errorf("boulder: %w", err)
	}

	return Sample{
		Time:        at,
		Lead:        copyPercent(lead),
		Boulder:     copyPercent(boulder),
		Overall:     ComputedOverall(lead, boulder),
		OpenSectors: openSectors,
	}, nil
}

// ComputedOverall returns the rounded mean of lead and boulder when both are
// present, else whichever is present, else nil. Half values round up.
func ComputedOverall(lead, boulder *int) *int {
	switch {
	case lead != nil && boulder != nil:
		v := (*lead + *boulder + 1) / 2
		return &v
	case lead != nil:
		return copyPercent(lead)
	case boulder != nil:
		return copyPercent(boulder)
	default:
		return nil
	}
}

// Percent returns a pointer to v, for building optional readings.
func Percent(v int) *int { return &v }

func validatePercent(v *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return ErrPercentOutOfRange
	}
	return nil
}

func copyPercent(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
