package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	collector "cragwatch/internal/collector/domain"
	occupancy "cragwatch/internal/occupancy/domain"
)

func newTestExportHandler(t *testing.T) *ExportHandler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, loc)
	feed := &stubFeed{
		samples: []occupancy.Sample{
			{Time: now.Add(-2 * time.Hour), Lead: pct(40), Boulder: pct(60), Overall: pct(50), OpenSectors: "Main Hall"},
			{Time: now.Add(-time.Hour), Lead: pct(70), Boulder: pct(30), Overall: pct(50)},
		},
		status: collector.Status{LastRun: now, Success: true},
	}
	handler, err := NewExportHandler(feed, fakeClock{now: now}, loc)
	if err != nil {
		t.Fatalf("NewExportHandler: %v", err)
	}
	return handler
}

func TestExportPeaksXLSX(t *testing.T) {
	handler := newTestExportHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/peaks.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("response does not look like an xlsx file")
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="peaks.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestExportWeekPDF(t *testing.T) {
	handler := newTestExportHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/week.pdf", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("response does not look like a pdf file")
	}
}

func TestExportSamplesCSV(t *testing.T) {
	handler := newTestExportHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/samples.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !bytes.HasPrefix([]byte(body), []byte("time,lead,boulder,overall,openSectors\n")) {
		t.Fatalf("missing csv header: %q", body)
	}
	if !containsLineWith(body, "40,60,50,Main Hall") {
		t.Fatalf("missing sample row in %q", body)
	}
}

func TestExportUnknownPath(t *testing.T) {
	handler := newTestExportHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/peaks.docx", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func containsLineWith(body, fragment string) bool {
	return bytes.Contains([]byte(body), []byte(fragment))
}
