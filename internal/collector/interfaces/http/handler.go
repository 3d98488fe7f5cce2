package http

import (
	"encoding/json"
	"errors"
	"net/http"

	collector "cragwatch/internal/collector/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

// SampleSource exposes the retained sample window.
type SampleSource interface {
	Snapshot() []occupancy.Sample
}

// StatusSource exposes the last scrape status.
type StatusSource interface {
	Status() collector.Status
}

// DataHandler serves the collector's raw data endpoints consumed by the
// dashboard: the sample window and the scrape status.
type DataHandler struct {
	samples SampleSource
	status  StatusSource
}

// NewDataHandler constructs a DataHandler.
func NewDataHandler(samples SampleSource, status StatusSource) (*DataHandler, error) {
	if samples == nil {
		return nil, errors.New("collector handler: nil sample source")
	}
	if status == nil {
		return nil, errors.New("collector handler: nil status source")
	}
	return &DataHandler{samples: samples, status: status}, nil
}

// ServeHTTP routes /samples.json and /status.json.
func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/samples.json":
		h.respond(w, h.samples.Snapshot())
	case "/status.json":
		h.respond(w, h.status.Status())
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// respond writes JSON with caching disabled; consumers add their own
// cache-busting parameter, and stale occupancy data is worse than none.
func (h *DataHandler) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(payload)
}
