package dashboard

import (
	"sync"
	"time"
)

// Renderer receives overlay updates for one chart. Implementations draw
// onto whatever surface the interface layer uses; the engine only decides
// what to draw and where.
type Renderer interface {
	RenderOverlay(state OverlayState)
	ClearOverlay()
	RenderPeaks(markers []PeakMarker)
}

// CursorState tracks whether a chart currently shows a crosshair.
type CursorState struct {
	Active    bool      `json:"active"`
	QueryTime time.Time `json:"queryTime,omitempty"`
}

// Chart binds one day series to a drawing surface.
type Chart struct {
	ID       string
	Series   DaySeries
	Peak     DailyPeak
	Width    float64
	Height   float64
	renderer Renderer
	measurer TextMeasurer

	mu     sync.Mutex
	cursor CursorState
}

// NewChart builds a chart for one day series. renderer may be nil for
// consumers that only want the computed overlay states.
func NewChart(id string, series DaySeries, peak DailyPeak, width, height float64, renderer Renderer, measurer TextMeasurer) *Chart {
	if measurer == nil {
		measurer = ApproxMeasurer{}
	}
	return &Chart{
		ID:       id,
		Series:   series,
		Peak:     peak,
		Width:    width,
		Height:   height,
		renderer: renderer,
		measurer: measurer,
	}
}

// Cursor returns the chart's current cursor state.
func (c *Chart) Cursor() CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// TimeAtX maps a plot-area pixel to an instant on this chart's time axis.
func (c *Chart) TimeAtX(x float64) (time.Time, bool) {
	return xToTime(c.Series, x, c.Width)
}

// ShowPeaks renders the chart's static peak markers.
func (c *Chart) ShowPeaks() {
	if c.renderer == nil {
		return
	}
	c.renderer.RenderPeaks(buildPeakMarkers(c.Series, c.Peak, c.Width, c.measurer))
}

// moveTo positions the crosshair at the given instant and reports whether
// the cursor is active afterwards. Outside the series' sampled range the
// overlay is cleared instead, so a chart whose day ended early goes idle
// rather than extrapolating.
func (c *Chart) moveTo(at time.Time) (OverlayState, bool) {
	values, ok := c.Series.At(at)
	if !ok {
		c.clear()
		return OverlayState{}, false
	}
	state := buildOverlay(c.Series, at, values, c.Width, c.measurer)
	c.mu.Lock()
	c.cursor = CursorState{Active: true, QueryTime: at}
	c.mu.Unlock()
	if c.renderer != nil {
		c.renderer.RenderOverlay(state)
	}
	return state, true
}

func (c *Chart) clear() {
	c.mu.Lock()
	wasActive := c.cursor.Active
	c.cursor = CursorState{}
	c.mu.Unlock()
	if wasActive && c.renderer != nil {
		c.renderer.ClearOverlay()
	}
}

// Registry holds the charts currently on screen. Its write lock also
// serializes cursor broadcasts: a pointer event updates every chart before
// any other event, or a teardown, can interleave.
type Registry struct {
	mu     sync.RWMutex
	charts []*Chart
}

// NewRegistry returns an empty chart registry.
func NewRegistry() *Registry { return &Registry{} }

// Add registers a chart. Re-adding an id replaces the previous chart.
func (r *Registry) Add(c *Chart) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.charts {
		if existing.ID == c.ID {
			r.charts[i] = c
			return
		}
	}
	r.charts = append(r.charts, c)
}

// Remove unregisters a chart by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.charts {
		if c.ID == id {
			r.charts = append(r.charts[:i], r.charts[i+1:]...)
			return
		}
	}
}

// Get returns the chart with the given id.
func (r *Registry) Get(id string) (*Chart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.find(id); c != nil {
		return c, nil
	}
	return nil, ErrChartNotFound
}

// find looks up a chart by id. Callers hold r.mu.
func (r *Registry) find(id string) *Chart {
	for _, c := range r.charts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Charts returns a snapshot of the registered charts in add order.
func (r *Registry) Charts() []*Chart {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Chart, len(r.charts))
	copy(out, r.charts)
	return out
}

// Clear drops all charts, clearing any active overlays first.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearAll()
	r.charts = nil
}

// clearAll clears every chart's overlay. Callers hold r.mu.
func (r *Registry) clearAll() {
	for _, c := range r.charts {
		c.clear()
	}
}

// Synchronizer mirrors the cursor across all registered charts. The cursor
// is keyed by time of day: hovering 10:30 on Monday's chart shows 10:30 on
// every other day's chart, each interpolated from its own series.
type Synchronizer struct {
	registry *Registry
}

// NewSynchronizer returns a synchronizer over the given registry.
func NewSynchronizer(registry *Registry) *Synchronizer {
	return &Synchronizer{registry: registry}
}

// PointerMove handles a pointer at pixel x on the chart with the given id
// and mirrors the resulting time of day onto every registered chart.
// Charts whose sampled range does not cover that instant go idle. The whole
// broadcast holds the registry write lock, so concurrent pointer events and
// a rebuild's teardown serialize against it.
func (s *Synchronizer) PointerMove(chartID string, x float64) (map[string]OverlayState, error) {
	r := s.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	origin := r.find(chartID)
	if origin == nil {
		return nil, ErrChartNotFound
	}
	at, ok := origin.TimeAtX(x)
	if !ok {
		r.clearAll()
		return map[string]OverlayState{}, nil
	}

	hour, minute, sec := at.Clock()
	states := make(map[string]OverlayState)
	for _, c := range r.charts {
		local := c.Series.MinTime.Location()
		day := c.Series.Day
		peerAt := time.Date(day.Year, day.Month, day.Day, hour, minute, sec, at.Nanosecond(), local)
		if state, active := c.moveTo(peerAt); active {
			states[c.ID] = state
		}
	}
	return states, nil
}

// PointerLeave clears the cursor on every chart.
func (s *Synchronizer) PointerLeave() {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.clearAll()
}
