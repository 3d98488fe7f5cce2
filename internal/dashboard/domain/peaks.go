package dashboard

import (
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// DailyPeak holds the maximum real reading per series for one day.
// Nil when the day has no qualifying sample for that series. Zero and
// absent readings never qualify: they mean "closed or unknown", and must
// not be confused with the zeros the normalizer synthesizes at the
// operating-window boundaries.
type DailyPeak struct {
	MaxLead        *int      `json:"maxLead"`
	MaxLeadTime    time.Time `json:"maxLeadTime"`
	MaxBoulder     *int      `json:"maxBoulder"`
	MaxBoulderTime time.Time `json:"maxBoulderTime"`
}

// ExtractPeaks computes the daily peak for each series over a day bucket.
// Ties keep the earliest occurrence.
func ExtractPeaks(bucket []occupancy.Sample) DailyPeak {
	var peak DailyPeak
	for _, s := range bucket {
		if qualifies(s.Lead) && (peak.MaxLead == nil || *s.Lead > *peak.MaxLead) {
			peak.MaxLead = s.Lead
			peak.MaxLeadTime = s.Time
		}
		if qualifies(s.Boulder) && (peak.MaxBoulder == nil || *s.Boulder > *peak.MaxBoulder) {
			peak.MaxBoulder = s.Boulder
			peak.MaxBoulderTime = s.Time
		}
	}
	return peak
}

func qualifies(v *int) bool {
	return v != nil && *v > 0
}
