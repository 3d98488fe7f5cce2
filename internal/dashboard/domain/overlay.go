package dashboard

import (
	"fmt"
	"time"
)

// TextMeasurer reports the rendered pixel width of a label text.
// Rendering backends can supply exact font metrics; the default is a
// fixed-advance approximation good enough for collision checks.
type TextMeasurer interface {
	Width(text string) float64
}

// ApproxMeasurer assumes a fixed character advance.
type ApproxMeasurer struct {
	CharWidth float64
}

// Width returns the approximate pixel width of text.
func (m ApproxMeasurer) Width(text string) float64 {
	w := m.CharWidth
	if w <= 0 {
		w = 7
	}
	return float64(len([]rune(text))) * w
}

// Label is a positioned overlay text.
type Label struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// OverlayState is everything a renderer needs to draw the live cursor on
// one chart: the crosshair position and the laid-out labels.
type OverlayState struct {
	CursorTime time.Time `json:"cursorTime"`
	CursorX    float64   `json:"cursorX"`
	Values     Values    `json:"values"`
	Labels     []Label   `json:"labels"`
}

// PeakMarker is a static vertical marker at a day's peak.
type PeakMarker struct {
	Series string    `json:"series"`
	Value  int       `json:"value"`
	At     time.Time `json:"at"`
	X      float64   `json:"x"`
	Label  Label     `json:"label"`
}

const labelLineHeight = 14

// layoutLabels centers each label on its anchor, clamps it into the plot
// area, and pushes a label one line down when its horizontal span overlaps
// the previous one. Labels must be given in left-to-right anchor order.
func layoutLabels(anchors []Label, width float64, measurer TextMeasurer) []Label {
	if measurer == nil {
		measurer = ApproxMeasurer{}
	}

	placed := make([]Label, 0, len(anchors))
	prevEnd := -1.0
	prevY := 0.0
	for _, anchor := range anchors {
		w := measurer.Width(anchor.Text)
		x := clamp(anchor.X-w/2, 0, width-w)
		if width < w {
			x = 0
		}
		y := anchor.Y
		if len(placed) > 0 && x < prevEnd && y == prevY {
			y += labelLineHeight
		}
		placed = append(placed, Label{Text: anchor.Text, X: x, Y: y})
		prevEnd = x + w
		prevY = anchor.Y
	}
	return placed
}

// buildOverlay assembles the cursor overlay for a chart at the given
// instant: a time label plus one value label per series, collision-laid.
func buildOverlay(series DaySeries, at time.Time, values Values, width float64, measurer TextMeasurer) OverlayState {
	x := timeToX(series, at, width)
	anchors := []Label{
		{Text: at.Format("15:04"), X: x, Y: 0},
		{Text: fmt.Sprintf("Lead %d%%", int(values.Lead+0.5)), X: x, Y: labelLineHeight},
		{Text: fmt.Sprintf("Boulder %d%%", int(values.Boulder+0.5)), X: x, Y: labelLineHeight},
	}
	return OverlayState{
		CursorTime: at,
		CursorX:    x,
		Values:     values,
		Labels:     layoutLabels(anchors, width, measurer),
	}
}

// buildPeakMarkers lays out the static peak annotations for one chart,
// applying the same clamping and overlap rules as the live cursor labels.
func buildPeakMarkers(series DaySeries, peak DailyPeak, width float64, measurer TextMeasurer) []PeakMarker {
	var markers []PeakMarker
	if peak.MaxLead != nil {
		markers = append(markers, PeakMarker{
			Series: "lead",
			Value:  *peak.MaxLead,
			At:     peak.MaxLeadTime,
			X:      timeToX(series, peak.MaxLeadTime, width),
		})
	}
	if peak.MaxBoulder != nil {
		markers = append(markers, PeakMarker{
			Series: "boulder",
			Value:  *peak.MaxBoulder,
			At:     peak.MaxBoulderTime,
			X:      timeToX(series, peak.MaxBoulderTime, width),
		})
	}
	if len(markers) == 0 {
		return nil
	}
	if len(markers) == 2 && markers[1].X < markers[0].X {
		markers[0], markers[1] = markers[1], markers[0]
	}

	anchors := make([]Label, len(markers))
	for i, m := range markers {
		anchors[i] = Label{
			Text: fmt.Sprintf("%d%% %s", m.Value, m.At.Format("15:04")),
			X:    m.X,
			Y:    0,
		}
	}
	laid := layoutLabels(anchors, width, measurer)
	for i := range markers {
		markers[i].Label = laid[i]
	}
	return markers
}

// timeToX maps an instant onto the plot's horizontal axis.
func timeToX(series DaySeries, at time.Time, width float64) float64 {
	span := series.MaxTime.Sub(series.MinTime)
	if span <= 0 {
		return 0
	}
	x := float64(at.Sub(series.MinTime)) / float64(span) * width
	return clamp(x, 0, width)
}

// xToTime maps a plot-area pixel back onto the day's time axis.
func xToTime(series DaySeries, x, width float64) (time.Time, bool) {
	if width <= 0 || x < 0 || x > width {
		return time.Time{}, false
	}
	span := series.MaxTime.Sub(series.MinTime)
	if span <= 0 {
		return time.Time{}, false
	}
	offset := time.Duration(x / width * float64(span))
	return series.MinTime.Add(offset), true
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
