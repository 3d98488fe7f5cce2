package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	collector "cragwatch/internal/collector/domain"
	dashapp "cragwatch/internal/dashboard/application"
	dashboard "cragwatch/internal/dashboard/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type stubFeed struct {
	samples []occupancy.Sample
	status  collector.Status
}

func (f *stubFeed) Samples(context.Context) ([]occupancy.Sample, error) { return f.samples, nil }
func (f *stubFeed) Status(context.Context) (collector.Status, error)   { return f.status, nil }

type openAllDay struct{}

func (openAllDay) Window(day occupancy.DayKey, loc *time.Location) (time.Time, time.Time, bool) {
	return day.At(9, 0, loc), day.At(22, 0, loc), false
}

func pct(v int) *int { return &v }

func newTestHandler(t *testing.T, mode dashboard.ViewMode) (*Handler, *dashapp.Refresher) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, loc)
	clock := fakeClock{now: now}

	feed := &stubFeed{
		samples: []occupancy.Sample{
			{Time: now.Add(-2 * time.Hour), Lead: pct(40), Boulder: pct(60)},
			{Time: now.Add(-time.Hour), Lead: pct(70), Boulder: pct(30)},
		},
		status: collector.Status{LastRun: now, Success: true, Message: "ok"},
	}

	registry := dashboard.NewRegistry()
	selector, err := dashboard.NewSelector(registry, openAllDay{}, clock, loc)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	refresher, err := dashapp.NewRefresher(feed, selector, nil, clock, mode, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	handler, err := NewHandler(refresher, dashboard.NewSynchronizer(registry), feed, clock, loc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler, refresher
}

func TestGetView(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/view", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		View   dashboard.View    `json:"view"`
		Status *collector.Status `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.View.Mode != dashboard.ViewOneDay || len(resp.View.Series) != 1 {
		t.Fatalf("unexpected view %+v", resp.View)
	}
	if resp.Status == nil || !resp.Status.Success {
		t.Fatalf("expected collector status in response")
	}
}

func TestSetViewMode(t *testing.T) {
	handler, refresher := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/view", strings.NewReader(`{"mode":"peak-week"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if refresher.Mode() != dashboard.ViewPeakWeek {
		t.Fatalf("mode not switched, still %s", refresher.Mode())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/view", strings.NewReader(`{"mode":"bogus"}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", rec.Code)
	}
}

func TestGetSeriesByDay(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/series?day=2026-03-10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var series dashboard.DaySeries
	if err := json.NewDecoder(rec.Body).Decode(&series); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if series.Day.Day != 10 || len(series.Points) < 2 {
		t.Fatalf("unexpected series %+v", series)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/series?day=2026-01-01", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a day outside the view, got %d", rec.Code)
	}
}

func TestGetPeaks(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/peaks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var entries []peakEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 7 {
		t.Fatalf("expected 7 peak entries, got %d", len(entries))
	}
	today := entries[6]
	if today.Peak.MaxLead == nil || *today.Peak.MaxLead != 70 {
		t.Fatalf("unexpected peak for today: %+v", today)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/peaks?window=year", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown window, got %d", rec.Code)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cursor", strings.NewReader(`{"chart":"2026-03-10","x":100}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var states map[string]dashboard.OverlayState
	if err := json.NewDecoder(rec.Body).Decode(&states); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := states["2026-03-10"]; !ok {
		t.Fatalf("expected an overlay state for the hovered chart")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cursor", strings.NewReader(`{"leave":true}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status on leave: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cursor", strings.NewReader(`{"chart":"nope","x":1}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chart, got %d", rec.Code)
	}
}

func TestDrillDownLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewPeakWeek)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drilldown", strings.NewReader(`{"day":"2026-03-10"}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var view dashboard.View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.DrillDown == nil || view.DrillDown.Day.Day != 10 {
		t.Fatalf("expected a drill-down series, got %+v", view.DrillDown)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/drilldown", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status on close: %d", rec.Code)
	}
}

func TestDrillDownRequiresPeakView(t *testing.T) {
	handler, _ := newTestHandler(t, dashboard.ViewOneDay)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drilldown", strings.NewReader(`{"day":"2026-03-10"}`))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 outside peak views, got %d", rec.Code)
	}
}
