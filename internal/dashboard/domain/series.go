package dashboard

import (
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// Clock provides time for live-day decisions.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Point is one plotted instant of a day series. Nil values mean the reading
// was absent; synthesized boundary points carry explicit zeros.
type Point struct {
	Time    time.Time `json:"time"`
	Lead    *int      `json:"lead"`
	Boulder *int      `json:"boulder"`
}

// DaySeries is a single day's occupancy, normalized so the plotted X axis
// always spans the operating window regardless of how sparse the real
// samples are.
type DaySeries struct {
	Day     occupancy.DayKey `json:"day"`
	Points  []Point          `json:"points"`
	MinTime time.Time        `json:"minTime"`
	MaxTime time.Time        `json:"maxTime"`
}

// NormalizeDay builds the plotted series for one day bucket.
//
// The gym's open and close instants are never sampled directly (polling is
// interval based), so missing boundaries are synthesized as zero points:
// a leading (open, 0, 0) whenever the first sample comes after opening, and
// a trailing (close, 0, 0) only once the day is over (a past day, or the
// current day after closing time), so a live day never shows a false drop
// to zero before the gym actually closed.
func NormalizeDay(bucket []occupancy.Sample, day occupancy.DayKey, openAt, closeAt time.Time, clock Clock, loc *time.Location) (DaySeries, error) {
	if loc == nil {
		return DaySeries{}, occupancy.ErrNilLocation
	}
	if openAt.IsZero() || closeAt.IsZero() || !closeAt.After(openAt) {
		return DaySeries{}, ErrInvalidWindow
	}
	if clock == nil {
		clock = SystemClock{}
	}

	points := make([]Point, 0, len(bucket)+2)

	if len(bucket) == 0 || bucket[0].Time.After(openAt) {
		points = append(points, Point{Time: openAt, Lead: occupancy.Percent(0), Boulder: occupancy.Percent(0)})
	}
	for _, s := range bucket {
		points = append(points, Point{Time: s.Time, Lead: s.Lead, Boulder: s.Boulder})
	}

	now := clock.Now().In(loc)
	today := occupancy.NewDayKey(now, loc)
	dayOver := day.Before(today) || (day == today && !now.Before(closeAt))
	lastBeforeClose := len(bucket) == 0 || bucket[len(bucket)-1].Time.Before(closeAt)
	if dayOver && lastBeforeClose {
		points = append(points, Point{Time: closeAt, Lead: occupancy.Percent(0), Boulder: occupancy.Percent(0)})
	}

	return DaySeries{Day: day, Points: points, MinTime: openAt, MaxTime: closeAt}, nil
}
