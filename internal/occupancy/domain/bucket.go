package occupancy

import (
	"fmt"
	"sort"
	"time"
)

// DayKey identifies a calendar day in the gym's local timezone.
// A value type with field equality; avoids string-formatted date keys.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDayKey truncates t to its calendar day in loc.
func NewDayKey(t time.Time, loc *time.Location) DayKey {
	local := t.In(loc)
	return DayKey{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// Start returns midnight of the day in loc.
func (k DayKey) Start(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// At returns the instant at hour:minute on this day in loc.
func (k DayKey) At(hour, minute int, loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, hour, minute, 0, 0, loc)
}

// AddDays returns the key n calendar days later (negative n goes back).
func (k DayKey) AddDays(n int, loc *time.Location) DayKey {
	return NewDayKey(k.Start(loc).AddDate(0, 0, n), loc)
}

// Before reports whether k is an earlier calendar day than other.
func (k DayKey) Before(other DayKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// String formats the key as YYYY-MM-DD.
func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// ParseDayKey parses a YYYY-MM-DD string.
func ParseDayKey(value string) (DayKey, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return DayKey{}, fmt.Errorf("occupancy: parse day key %q: %w", value, err)
	}
	return DayKey{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// BucketByDay groups samples by their local calendar day. Samples inside a
// bucket are sorted by time; the sort is stable so equal timestamps keep
// their input order even though the source is normally ordered already.
func BucketByDay(samples []Sample, loc *time.Location) (map[DayKey][]Sample, error) {
	if loc == nil {
		return nil, ErrNilLocation
	}

	buckets := make(map[DayKey][]Sample)
	for _, s := range samples {
		if s.Time.IsZero() {
			continue
		}
		key := NewDayKey(s.Time, loc)
		buckets[key] = append(buckets[key], s)
	}
	for key, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Time.Before(bucket[j].Time)
		})
		buckets[key] = bucket
	}
	return buckets, nil
}
