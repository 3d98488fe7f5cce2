package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	collector "cragwatch/internal/collector/domain"
	dashapp "cragwatch/internal/dashboard/application"
	dashboard "cragwatch/internal/dashboard/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

// Handler serves the dashboard API.
type Handler struct {
	refresher    *dashapp.Refresher
	synchronizer *dashboard.Synchronizer
	feed         dashapp.Feed
	clock        dashboard.Clock
	loc          *time.Location
}

// NewHandler constructs a Handler.
func NewHandler(refresher *dashapp.Refresher, synchronizer *dashboard.Synchronizer, feed dashapp.Feed, clock dashboard.Clock, loc *time.Location) (*Handler, error) {
	if refresher == nil {
		return nil, errors.New("dashboard handler: nil refresher")
	}
	if synchronizer == nil {
		return nil, errors.New("dashboard handler: nil synchronizer")
	}
	if feed == nil {
		return nil, errors.New("dashboard handler: nil feed")
	}
	if loc == nil {
		return nil, occupancy.ErrNilLocation
	}
	if clock == nil {
		clock = dashboard.SystemClock{}
	}
	return &Handler{refresher: refresher, synchronizer: synchronizer, feed: feed, clock: clock, loc: loc}, nil
}

// ServeHTTP routes dashboard API requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/view" && r.Method == http.MethodGet:
		h.handleGetView(w, r)
	case r.URL.Path == "/api/v1/view" && r.Method == http.MethodPost:
		h.handleSetView(w, r)
	case r.URL.Path == "/api/v1/series" && r.Method == http.MethodGet:
		h.handleSeries(w, r)
	case r.URL.Path == "/api/v1/peaks" && r.Method == http.MethodGet:
		h.handlePeaks(w, r)
	case r.URL.Path == "/api/v1/cursor" && r.Method == http.MethodPost:
		h.handleCursor(w, r)
	case r.URL.Path == "/api/v1/drilldown" && r.Method == http.MethodPost:
		h.handleDrillDown(w, r)
	case r.URL.Path == "/api/v1/drilldown" && r.Method == http.MethodDelete:
		h.respond(w, h.refresher.CloseDrillDown())
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type viewResponse struct {
	View      dashboard.View    `json:"view"`
	Status    *collector.Status `json:"status,omitempty"`
	Generated time.Time         `json:"generated"`
}

func (h *Handler) handleGetView(w http.ResponseWriter, _ *http.Request) {
	resp := viewResponse{View: h.refresher.View(), Generated: h.clock.Now()}
	if status, ok := h.refresher.Status(); ok {
		resp.Status = &status
	}
	h.respond(w, resp)
}

func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	mode, err := dashboard.ParseViewMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := h.refresher.SetMode(r.Context(), mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.respond(w, view)
}

func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	day, err := occupancy.ParseDayKey(r.URL.Query().Get("day"))
	if err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	view := h.refresher.View()
	if view.DrillDown != nil && view.DrillDown.Day == day {
		h.respond(w, *view.DrillDown)
		return
	}
	for _, series := range view.Series {
		if series.Day == day {
			h.respond(w, series)
			return
		}
	}
	http.Error(w, "day not in current view", http.StatusNotFound)
}

type peakEntry struct {
	Day  occupancy.DayKey    `json:"day"`
	Peak dashboard.DailyPeak `json:"peak"`
}

func (h *Handler) handlePeaks(w http.ResponseWriter, r *http.Request) {
	days := 7
	switch r.URL.Query().Get("window") {
	case "", "week":
	case "month":
		days = 30
	default:
		http.Error(w, "window must be week or month", http.StatusBadRequest)
		return
	}

	samples, err := h.feed.Samples(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	buckets, err := occupancy.BucketByDay(samples, h.loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	today := occupancy.NewDayKey(h.clock.Now().In(h.loc), h.loc)
	entries := make([]peakEntry, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDays(-i, h.loc)
		entries = append(entries, peakEntry{Day: day, Peak: dashboard.ExtractPeaks(buckets[day])})
	}
	h.respond(w, entries)
}

func (h *Handler) handleCursor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chart string  `json:"chart"`
		X     float64 `json:"x"`
		Leave bool    `json:"leave"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Leave {
		h.synchronizer.PointerLeave()
		h.respond(w, map[string]dashboard.OverlayState{})
		return
	}
	states, err := h.synchronizer.PointerMove(req.Chart, req.X)
	if err != nil {
		if errors.Is(err, dashboard.ErrChartNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, states)
}

func (h *Handler) handleDrillDown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Day string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	day, err := occupancy.ParseDayKey(req.Day)
	if err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	view, err := h.refresher.DrillDown(day)
	if err != nil {
		if errors.Is(err, dashboard.ErrNoDrillDown) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.respond(w, view)
}

func (h *Handler) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(payload)
}
