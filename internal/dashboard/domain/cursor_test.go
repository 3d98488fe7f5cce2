package dashboard

import (
	"sync"
	"testing"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

type recordingRenderer struct {
	overlays []OverlayState
	clears   int
	peaks    [][]PeakMarker
}

func (r *recordingRenderer) RenderOverlay(state OverlayState) { r.overlays = append(r.overlays, state) }
func (r *recordingRenderer) ClearOverlay()                    { r.clears++ }
func (r *recordingRenderer) RenderPeaks(m []PeakMarker)       { r.peaks = append(r.peaks, m) }

func dayChart(t *testing.T, id string, day occupancy.DayKey, bucket []occupancy.Sample, now time.Time, renderer Renderer) *Chart {
	t.Helper()
	loc := mustLocation(t)
	series, err := NormalizeDay(bucket, day, day.At(9, 0, loc), day.At(22, 0, loc), fakeClock{now: now}, loc)
	if err != nil {
		t.Fatalf("NormalizeDay: %v", err)
	}
	return NewChart(id, series, ExtractPeaks(bucket), 780, 300, renderer, nil)
}

func TestSynchronizerMirrorsTimeOfDay(t *testing.T) {
	loc := mustLocation(t)
	monday := occupancy.DayKey{Year: 2026, Month: time.March, Day: 9}
	tuesday := occupancy.DayKey{Year: 2026, Month: time.March, Day: 10}
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, loc)

	mondayBucket := []occupancy.Sample{
		{Time: monday.At(10, 0, loc), Lead: pct(40), Boulder: pct(40)},
		{Time: monday.At(11, 0, loc), Lead: pct(60), Boulder: pct(60)},
	}
	tuesdayBucket := []occupancy.Sample{
		{Time: tuesday.At(10, 0, loc), Lead: pct(20), Boulder: pct(20)},
		{Time: tuesday.At(11, 0, loc), Lead: pct(80), Boulder: pct(80)},
	}

	mondayRenderer := &recordingRenderer{}
	tuesdayRenderer := &recordingRenderer{}
	registry := NewRegistry()
	registry.Add(dayChart(t, "mon", monday, mondayBucket, now, mondayRenderer))
	registry.Add(dayChart(t, "tue", tuesday, tuesdayBucket, now, tuesdayRenderer))
	s := NewSynchronizer(registry)

	// Pixel under 10:30 on Monday's chart.
	mon, err := registry.Get("mon")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	at := monday.At(10, 30, loc)
	x := float64(at.Sub(mon.Series.MinTime)) / float64(mon.Series.MaxTime.Sub(mon.Series.MinTime)) * mon.Width

	states, err := s.PointerMove("mon", x)
	if err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected both charts to show the cursor, got %d", len(states))
	}

	monState, tueState := states["mon"], states["tue"]
	if got := monState.CursorTime.In(loc); absDuration(got.Sub(monday.At(10, 30, loc))) > time.Second {
		t.Fatalf("monday cursor at %v, want ~10:30", got)
	}
	if got := tueState.CursorTime.In(loc); absDuration(got.Sub(tuesday.At(10, 30, loc))) > time.Second {
		t.Fatalf("tuesday cursor must mirror the time of day onto its own date, got %v", got)
	}
	if monState.Values.Lead < 49 || monState.Values.Lead > 51 {
		t.Fatalf("monday 10:30 lead should interpolate near 50, got %v", monState.Values.Lead)
	}
	if tueState.Values.Lead < 49 || tueState.Values.Lead > 51 {
		t.Fatalf("tuesday 10:30 lead should interpolate near 50 on its own series, got %v", tueState.Values.Lead)
	}
	if len(mondayRenderer.overlays) != 1 || len(tuesdayRenderer.overlays) != 1 {
		t.Fatalf("each renderer must receive exactly one overlay")
	}
}

func TestSynchronizerIdlesChartsOutsideRange(t *testing.T) {
	loc := mustLocation(t)
	yesterday := occupancy.DayKey{Year: 2026, Month: time.March, Day: 9}
	today := occupancy.DayKey{Year: 2026, Month: time.March, Day: 10}
	// Live day: last sample 12:00, now 13:00, so today's series ends at 12:00.
	now := today.At(13, 0, loc)

	yesterdayBucket := []occupancy.Sample{
		{Time: yesterday.At(15, 0, loc), Lead: pct(55), Boulder: pct(55)},
	}
	todayBucket := []occupancy.Sample{
		{Time: today.At(12, 0, loc), Lead: pct(35), Boulder: pct(35)},
	}

	todayRenderer := &recordingRenderer{}
	registry := NewRegistry()
	registry.Add(dayChart(t, "yesterday", yesterday, yesterdayBucket, now, &recordingRenderer{}))
	todayChart := dayChart(t, "today", today, todayBucket, now, todayRenderer)
	registry.Add(todayChart)
	s := NewSynchronizer(registry)

	yd, err := registry.Get("yesterday")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	at := yesterday.At(15, 0, loc)
	x := float64(at.Sub(yd.Series.MinTime)) / float64(yd.Series.MaxTime.Sub(yd.Series.MinTime)) * yd.Width

	// Activate both is impossible: today's chart has no 15:00 yet.
	states, err := s.PointerMove("yesterday", x)
	if err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	if _, ok := states["yesterday"]; !ok {
		t.Fatalf("origin chart must show the cursor")
	}
	if _, ok := states["today"]; ok {
		t.Fatalf("a chart without data at that time of day must stay idle")
	}
	if todayChart.Cursor().Active {
		t.Fatalf("idle chart must not report an active cursor")
	}
}

func TestSynchronizerPointerLeaveClearsAll(t *testing.T) {
	loc := mustLocation(t)
	day := occupancy.DayKey{Year: 2026, Month: time.March, Day: 9}
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, loc)
	bucket := []occupancy.Sample{{Time: day.At(12, 0, loc), Lead: pct(50), Boulder: pct(50)}}

	renderer := &recordingRenderer{}
	registry := NewRegistry()
	registry.Add(dayChart(t, "d", day, bucket, now, renderer))
	s := NewSynchronizer(registry)

	if _, err := s.PointerMove("d", 100); err != nil {
		t.Fatalf("PointerMove: %v", err)
	}
	s.PointerLeave()

	if renderer.clears != 1 {
		t.Fatalf("expected one clear, got %d", renderer.clears)
	}
	chart, _ := registry.Get("d")
	if chart.Cursor().Active {
		t.Fatalf("cursor must be inactive after pointer leave")
	}
}

func TestSynchronizerUnknownChart(t *testing.T) {
	s := NewSynchronizer(NewRegistry())
	if _, err := s.PointerMove("missing", 10); err != ErrChartNotFound {
		t.Fatalf("expected ErrChartNotFound, got %v", err)
	}
}

func TestSynchronizerConcurrentPointerEvents(t *testing.T) {
	loc := mustLocation(t)
	monday := occupancy.DayKey{Year: 2026, Month: time.March, Day: 9}
	tuesday := occupancy.DayKey{Year: 2026, Month: time.March, Day: 10}
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, loc)

	mondayBucket := []occupancy.Sample{
		{Time: monday.At(10, 0, loc), Lead: pct(40), Boulder: pct(40)},
		{Time: monday.At(20, 0, loc), Lead: pct(60), Boulder: pct(60)},
	}
	tuesdayBucket := []occupancy.Sample{
		{Time: tuesday.At(10, 0, loc), Lead: pct(20), Boulder: pct(20)},
		{Time: tuesday.At(20, 0, loc), Lead: pct(80), Boulder: pct(80)},
	}

	monChart := dayChart(t, "mon", monday, mondayBucket, now, nil)
	tueChart := dayChart(t, "tue", tuesday, tuesdayBucket, now, nil)
	registry := NewRegistry()
	registry.Add(monChart)
	registry.Add(tueChart)
	s := NewSynchronizer(registry)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 250; j++ {
				if n%2 == 0 {
					// The chart may be mid-teardown; only a missing chart is fine.
					if _, err := s.PointerMove("mon", float64(50+j%600)); err != nil && err != ErrChartNotFound {
						t.Errorf("PointerMove: %v", err)
					}
				} else {
					s.PointerLeave()
				}
			}
		}(i)
	}
	// A rebuild tearing down and re-registering charts mid-hover.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			registry.Clear()
			registry.Add(monChart)
			registry.Add(tueChart)
		}
	}()
	wg.Wait()

	s.PointerLeave()
	for _, c := range registry.Charts() {
		if c.Cursor().Active {
			t.Fatalf("chart %s must settle idle after pointer leave", c.ID)
		}
	}
}

func TestRegistryReplaceAndRemove(t *testing.T) {
	loc := mustLocation(t)
	day := occupancy.DayKey{Year: 2026, Month: time.March, Day: 9}
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, loc)

	registry := NewRegistry()
	registry.Add(dayChart(t, "d", day, nil, now, nil))
	registry.Add(dayChart(t, "d", day, nil, now, nil))
	if len(registry.Charts()) != 1 {
		t.Fatalf("re-adding an id must replace, not duplicate")
	}

	registry.Remove("d")
	if _, err := registry.Get("d"); err != ErrChartNotFound {
		t.Fatalf("expected ErrChartNotFound after remove, got %v", err)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
