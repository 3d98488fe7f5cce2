package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	dashapp "cragwatch/internal/dashboard/application"
	dashboard "cragwatch/internal/dashboard/domain"
	"cragwatch/internal/observability/metrics"
	occupancy "cragwatch/internal/occupancy/domain"
)

// ExportHandler serves downloadable snapshots of the retained data.
type ExportHandler struct {
	feed  dashapp.Feed
	clock dashboard.Clock
	loc   *time.Location
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(feed dashapp.Feed, clock dashboard.Clock, loc *time.Location) (*ExportHandler, error) {
	if feed == nil {
		return nil, fmt.Errorf("export handler: nil feed")
	}
	if loc == nil {
		return nil, occupancy.ErrNilLocation
	}
	if clock == nil {
		clock = dashboard.SystemClock{}
	}
	return &ExportHandler{feed: feed, clock: clock, loc: loc}, nil
}

// ServeHTTP routes export downloads.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/export/peaks.xlsx":
		h.servePeaksXLSX(w, r)
	case "/export/week.pdf":
		h.serveWeekPDF(w, r)
	case "/export/samples.csv":
		h.serveSamplesCSV(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ExportHandler) weekPeaks(r *http.Request) ([]peakEntry, error) {
	samples, err := h.feed.Samples(r.Context())
	if err != nil {
		return nil, err
	}
	buckets, err := occupancy.BucketByDay(samples, h.loc)
	if err != nil {
		return nil, err
	}
	today := occupancy.NewDayKey(h.clock.Now().In(h.loc), h.loc)
	entries := make([]peakEntry, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDays(-i, h.loc)
		entries = append(entries, peakEntry{Day: day, Peak: dashboard.ExtractPeaks(buckets[day])})
	}
	return entries, nil
}

func (h *ExportHandler) servePeaksXLSX(w http.ResponseWriter, r *http.Request) {
	started := h.clock.Now()
	entries, err := h.weekPeaks(r)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, h.clock.Now().Sub(started))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	payload, err := BuildPeaksXLSX(entries)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, h.clock.Now().Sub(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, h.clock.Now().Sub(started))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="peaks.xlsx"`)
	_, _ = w.Write(payload)
}

func (h *ExportHandler) serveWeekPDF(w http.ResponseWriter, r *http.Request) {
	started := h.clock.Now()
	entries, err := h.weekPeaks(r)
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, h.clock.Now().Sub(started))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	payload, err := BuildWeekPDF(entries, h.clock.Now().In(h.loc))
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, h.clock.Now().Sub(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, h.clock.Now().Sub(started))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="week.pdf"`)
	_, _ = w.Write(payload)
}

func (h *ExportHandler) serveSamplesCSV(w http.ResponseWriter, r *http.Request) {
	started := h.clock.Now()
	samples, err := h.feed.Samples(r.Context())
	if err != nil {
		metrics.ObserveExport("csv", metrics.ResultError, h.clock.Now().Sub(started))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="samples.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"time", "lead", "boulder", "overall", "openSectors"})
	for _, s := range samples {
		_ = writer.Write([]string{
			s.Time.In(h.loc).Format(time.RFC3339),
			percentField(s.Lead),
			percentField(s.Boulder),
			percentField(s.Overall),
			s.OpenSectors,
		})
	}
	writer.Flush()
	metrics.ObserveExport("csv", metrics.ResultSuccess, h.clock.Now().Sub(started))
}

func percentField(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// BuildPeaksXLSX renders the weekly peak overview as a spreadsheet.
func BuildPeaksXLSX(entries []peakEntry) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "peaks"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Day")
	_ = f.SetCellValue(sheet, "B1", "Lead Peak (%)")
	_ = f.SetCellValue(sheet, "C1", "Lead Peak Time")
	_ = f.SetCellValue(sheet, "D1", "Boulder Peak (%)")
	_ = f.SetCellValue(sheet, "E1", "Boulder Peak Time")
	for i, entry := range entries {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.Day.String())
		if entry.Peak.MaxLead != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), *entry.Peak.MaxLead)
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.Peak.MaxLeadTime.Format("15:04"))
		}
		if entry.Peak.MaxBoulder != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *entry.Peak.MaxBoulder)
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), entry.Peak.MaxBoulderTime.Format("15:04"))
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildWeekPDF renders the weekly peak overview as a PDF report.
func BuildWeekPDF(entries []peakEntry, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Gym Occupancy - Weekly Peaks")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Lead (%)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Lead Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Boulder (%)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Boulder Time", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range entries {
		pdf.CellFormat(40, 6, entry.Day.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, peakCell(entry.Peak.MaxLead), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, peakTimeCell(entry.Peak.MaxLead, entry.Peak.MaxLeadTime), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, peakCell(entry.Peak.MaxBoulder), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, peakTimeCell(entry.Peak.MaxBoulder, entry.Peak.MaxBoulderTime), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func peakCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func peakTimeCell(v *int, at time.Time) string {
	if v == nil {
		return "-"
	}
	return at.Format("15:04")
}
