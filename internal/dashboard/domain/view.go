package dashboard

import (
	"fmt"
	"sync"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// ViewMode selects what the dashboard shows.
type ViewMode string

const (
	ViewOneDay    ViewMode = "1d"
	ViewTwoDays   ViewMode = "2d"
	ViewWeek      ViewMode = "7d"
	ViewPeakWeek  ViewMode = "peak-week"
	ViewPeakMonth ViewMode = "peak-month"
)

// ParseViewMode validates a mode string from the wire.
func ParseViewMode(raw string) (ViewMode, error) {
	switch ViewMode(raw) {
	case ViewOneDay, ViewTwoDays, ViewWeek, ViewPeakWeek, ViewPeakMonth:
		return ViewMode(raw), nil
	}
	return "", ErrUnknownMode
}

func (m ViewMode) days() int {
	switch m {
	case ViewOneDay:
		return 1
	case ViewTwoDays:
		return 2
	case ViewWeek, ViewPeakWeek:
		return 7
	case ViewPeakMonth:
		return 30
	}
	return 0
}

func (m ViewMode) peakBar() bool {
	return m == ViewPeakWeek || m == ViewPeakMonth
}

// PeakBar is one bar of a peak overview: a day and its per-series maxima.
type PeakBar struct {
	Day  occupancy.DayKey `json:"day"`
	Peak DailyPeak        `json:"peak"`
}

// View is the materialized dashboard state for one mode.
type View struct {
	Mode      ViewMode          `json:"mode"`
	Series    []DaySeries       `json:"series,omitempty"`
	PeakBars  []PeakBar         `json:"peakBars,omitempty"`
	DrillDown *DaySeries        `json:"drillDown,omitempty"`
	Err       string            `json:"err,omitempty"`
}

// Hours reports a day's operating window. The closed flag marks days the
// gym does not open at all.
type Hours interface {
	Window(day occupancy.DayKey, loc *time.Location) (openAt, closeAt time.Time, closed bool)
}

// RendererFactory creates a drawing surface for a chart id, or nil when the
// consumer only wants computed state.
type RendererFactory func(chartID string) Renderer

// Selector owns the active view: it builds charts for the selected mode,
// tears the previous ones down, and handles drill-down from peak bars.
type Selector struct {
	mu        sync.Mutex
	registry  *Registry
	hours     Hours
	clock     Clock
	loc       *time.Location
	width     float64
	height    float64
	measurer  TextMeasurer
	renderers RendererFactory

	samples []occupancy.Sample
	view    View
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithChartSize overrides the default chart dimensions.
func WithChartSize(width, height float64) SelectorOption {
	return func(s *Selector) {
		s.width = width
		s.height = height
	}
}

// WithMeasurer overrides the default label measurer.
func WithMeasurer(m TextMeasurer) SelectorOption {
	return func(s *Selector) { s.measurer = m }
}

// WithRenderers installs a factory for per-chart drawing surfaces.
func WithRenderers(f RendererFactory) SelectorOption {
	return func(s *Selector) { s.renderers = f }
}

// NewSelector builds a view selector. hours and loc are required; clock
// defaults to the system clock.
func NewSelector(registry *Registry, hours Hours, clock Clock, loc *time.Location, opts ...SelectorOption) (*Selector, error) {
	if registry == nil {
		return nil, fmt.Errorf("dashboard: nil registry")
	}
	if hours == nil {
		return nil, fmt.Errorf("dashboard: nil hours")
	}
	if loc == nil {
		return nil, occupancy.ErrNilLocation
	}
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Selector{
		registry: registry,
		hours:    hours,
		clock:    clock,
		loc:      loc,
		width:    800,
		height:   300,
		measurer: ApproxMeasurer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// View returns the last built view.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Rebuild tears down the current view and builds the given mode from a
// fresh sample snapshot. A failure while building one day is recorded on
// the view rather than aborting the whole rebuild, so one bad day cannot
// blank the dashboard.
func (s *Selector) Rebuild(mode ViewMode, samples []occupancy.Sample) (View, error) {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Clear()
	s.samples = samples
	s.view = s.build(mode, samples)
	return s.view, nil
}

func (s *Selector) build(mode ViewMode, samples []occupancy.Sample) (view View) {
	view.Mode = mode
	defer func() {
		if r := recover(); r != nil {
			view.Err = fmt.Sprintf("view build panic: %v", r)
		}
	}()

	buckets, err := occupancy.BucketByDay(samples, s.loc)
	if err != nil {
		view.Err = err.Error()
		return view
	}

	today := occupancy.NewDayKey(s.clock.Now().In(s.loc), s.loc)
	days := mode.days()

	if mode.peakBar() {
		view.PeakBars = make([]PeakBar, 0, days)
		for i := days - 1; i >= 0; i-- {
			day := today.AddDays(-i, s.loc)
			view.PeakBars = append(view.PeakBars, PeakBar{Day: day, Peak: ExtractPeaks(buckets[day])})
		}
		return view
	}

	for i := days - 1; i >= 0; i-- {
		day := today.AddDays(-i, s.loc)
		series, ok, err := s.buildDay(day, buckets[day])
		if err != nil {
			view.Err = err.Error()
			continue
		}
		if !ok {
			continue
		}
		view.Series = append(view.Series, series)
		s.register(day.String(), series, ExtractPeaks(buckets[day]))
	}
	return view
}

// buildDay normalizes one day. ok=false means the gym is closed that day
// and no chart should be shown.
func (s *Selector) buildDay(day occupancy.DayKey, bucket []occupancy.Sample) (DaySeries, bool, error) {
	openAt, closeAt, closed := s.hours.Window(day, s.loc)
	if closed {
		return DaySeries{}, false, nil
	}
	series, err := NormalizeDay(bucket, day, openAt, closeAt, s.clock, s.loc)
	if err != nil {
		return DaySeries{}, false, fmt.Errorf("normalize %s: %w", day, err)
	}
	return series, true, nil
}

func (s *Selector) register(id string, series DaySeries, peak DailyPeak) {
	var renderer Renderer
	if s.renderers != nil {
		renderer = s.renderers(id)
	}
	chart := NewChart(id, series, peak, s.width, s.height, renderer, s.measurer)
	s.registry.Add(chart)
	chart.ShowPeaks()
}

// DrillDown opens a single-day chart from a peak bar. Only valid on
// peak-bar views; a second drill-down replaces the first.
func (s *Selector) DrillDown(day occupancy.DayKey) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.view.Mode.peakBar() {
		return s.view, ErrNoDrillDown
	}

	buckets, err := occupancy.BucketByDay(s.samples, s.loc)
	if err != nil {
		return s.view, err
	}
	series, ok, err := s.buildDay(day, buckets[day])
	if err != nil {
		return s.view, err
	}
	if !ok {
		return s.view, fmt.Errorf("drill-down %s: gym closed: %w", day, ErrInvalidWindow)
	}

	s.registry.Clear()
	s.register(drillDownChartID, series, ExtractPeaks(buckets[day]))
	s.view.DrillDown = &series
	return s.view, nil
}

// CloseDrillDown returns from a drill-down chart to the peak bars.
func (s *Selector) CloseDrillDown() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Clear()
	s.view.DrillDown = nil
	return s.view
}

// Teardown clears the registry and forgets the current view.
func (s *Selector) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Clear()
	s.samples = nil
	s.view = View{}
}

const drillDownChartID = "drilldown"
