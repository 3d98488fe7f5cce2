package dashboard

import "time"

// Values is an interpolated occupancy pair at one instant.
type Values struct {
	Lead    float64 `json:"lead"`
	Boulder float64 `json:"boulder"`
}

// At returns the linearly interpolated values at query, or ok=false when
// query falls outside the series' sampled range. There is no extrapolation.
//
// An absent endpoint reading interpolates as 0 so the crosshair always has
// a value to show; visual continuity wins over strict missing-data
// semantics here.
func (s DaySeries) At(query time.Time) (Values, bool) {
	if len(s.Points) == 0 {
		return Values{}, false
	}
	first, last := s.Points[0].Time, s.Points[len(s.Points)-1].Time
	if query.Before(first) || query.After(last) {
		return Values{}, false
	}

	// Series are at most one day of interval samples; a linear scan is fine.
	for i := 0; i+1 < len(s.Points); i++ {
		start, end := s.Points[i], s.Points[i+1]
		if query.Before(start.Time) || query.After(end.Time) {
			continue
		}
		factor := 0.0
		if span := end.Time.Sub(start.Time); span > 0 {
			factor = float64(query.Sub(start.Time)) / float64(span)
		}
		return Values{
			Lead:    lerp(start.Lead, end.Lead, factor),
			Boulder: lerp(start.Boulder, end.Boulder, factor),
		}, true
	}

	// Single-point series: query can only equal that point.
	p := s.Points[0]
	return Values{Lead: lerp(p.Lead, p.Lead, 0), Boulder: lerp(p.Boulder, p.Boulder, 0)}, true
}

func lerp(start, end *int, factor float64) float64 {
	a, b := 0.0, 0.0
	if start != nil {
		a = float64(*start)
	}
	if end != nil {
		b = float64(*end)
	}
	return a + (b-a)*factor
}
