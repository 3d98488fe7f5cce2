package dashboard

import (
	"testing"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

func TestLayoutLabelsClampsToPlotArea(t *testing.T) {
	measurer := ApproxMeasurer{CharWidth: 10}

	// Anchor at the left edge: centering would push the label negative.
	left := layoutLabels([]Label{{Text: "10:00", X: 0, Y: 0}}, 200, measurer)
	if left[0].X != 0 {
		t.Fatalf("left label must clamp to 0, got %v", left[0].X)
	}

	// Anchor at the right edge: label must end inside the plot.
	right := layoutLabels([]Label{{Text: "22:00", X: 200, Y: 0}}, 200, measurer)
	if got := right[0].X + measurer.Width("22:00"); got > 200 {
		t.Fatalf("right label overflows the plot: ends at %v", got)
	}
}

func TestLayoutLabelsOffsetsOverlaps(t *testing.T) {
	measurer := ApproxMeasurer{CharWidth: 10}
	anchors := []Label{
		{Text: "Lead 50%", X: 100, Y: 0},
		{Text: "Boulder 60%", X: 110, Y: 0},
	}

	placed := layoutLabels(anchors, 800, measurer)
	if placed[0].Y == placed[1].Y {
		t.Fatalf("overlapping labels must not share a line: %+v", placed)
	}
	if placed[1].Y != labelLineHeight {
		t.Fatalf("second label should drop one line, got %v", placed[1].Y)
	}
}

func TestLayoutLabelsKeepsDistantLabelsOnLine(t *testing.T) {
	measurer := ApproxMeasurer{CharWidth: 10}
	anchors := []Label{
		{Text: "a", X: 50, Y: 0},
		{Text: "b", X: 500, Y: 0},
	}

	placed := layoutLabels(anchors, 800, measurer)
	if placed[0].Y != placed[1].Y {
		t.Fatalf("distant labels must stay on the same line: %+v", placed)
	}
}

func TestBuildPeakMarkersPositionsAndLabels(t *testing.T) {
	loc := mustLocation(t)
	day := occupancy.DayKey{Year: 2026, Month: time.March, Day: 10}
	bucket := []occupancy.Sample{
		{Time: day.At(11, 0, loc), Lead: pct(80), Boulder: pct(20)},
		{Time: day.At(17, 0, loc), Lead: pct(40), Boulder: pct(95)},
	}
	series, err := NormalizeDay(bucket, day, day.At(9, 0, loc), day.At(22, 0, loc), fakeClock{now: day.At(23, 0, loc)}, loc)
	if err != nil {
		t.Fatalf("NormalizeDay: %v", err)
	}

	markers := buildPeakMarkers(series, ExtractPeaks(bucket), 780, ApproxMeasurer{})
	if len(markers) != 2 {
		t.Fatalf("expected a marker per series, got %d", len(markers))
	}
	// Left to right: lead peak at 11:00 before boulder peak at 17:00.
	if markers[0].Series != "lead" || markers[1].Series != "boulder" {
		t.Fatalf("markers out of order: %+v", markers)
	}
	if markers[0].X >= markers[1].X {
		t.Fatalf("marker positions must follow the time axis")
	}
	if markers[0].Label.Text == "" || markers[1].Label.Text == "" {
		t.Fatalf("markers must carry laid-out labels")
	}
}

func TestTimeAtXRoundTrip(t *testing.T) {
	loc := mustLocation(t)
	day := occupancy.DayKey{Year: 2026, Month: time.March, Day: 10}
	series, err := NormalizeDay(nil, day, day.At(9, 0, loc), day.At(22, 0, loc), fakeClock{now: day.At(23, 0, loc)}, loc)
	if err != nil {
		t.Fatalf("NormalizeDay: %v", err)
	}

	at := day.At(10, 30, loc)
	x := timeToX(series, at, 780)
	back, ok := xToTime(series, x, 780)
	if !ok {
		t.Fatalf("expected a mapped time")
	}
	if absDuration(back.Sub(at)) > time.Second {
		t.Fatalf("round trip drifted: %v vs %v", back, at)
	}

	if _, ok := xToTime(series, -1, 780); ok {
		t.Fatalf("negative pixels map nowhere")
	}
	if _, ok := xToTime(series, 781, 780); ok {
		t.Fatalf("pixels past the plot map nowhere")
	}
}
