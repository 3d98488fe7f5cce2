package http

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	dashapp "cragwatch/internal/dashboard/application"
	dashboard "cragwatch/internal/dashboard/domain"
)

const (
	chartWidth  = 780.0
	chartHeight = 260.0
)

// PageHandler renders the dashboard page. Charts are drawn server-side as
// inline SVG; a small script wires cursor sync and live refresh on top.
type PageHandler struct {
	refresher *dashapp.Refresher
	loc       *time.Location
	tmpl      *template.Template
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(refresher *dashapp.Refresher, loc *time.Location) (*PageHandler, error) {
	if refresher == nil {
		return nil, fmt.Errorf("page handler: nil refresher")
	}
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("page handler: parse template: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &PageHandler{refresher: refresher, loc: loc, tmpl: tmpl}, nil
}

type chartModel struct {
	ID          string
	Title       string
	Width       float64
	Height      float64
	LeadPoints  string
	BoulderPath string
	Hours       []axisTick
	Peaks       []peakLabel
}

type axisTick struct {
	X     float64
	Label string
}

type peakLabel struct {
	X    float64
	Y    float64
	Text string
}

type barModel struct {
	Day      string
	Lead     int
	Boulder  int
	LeadH    float64
	BoulderH float64
}

type pageModel struct {
	Mode       string
	Modes      []string
	StatusLine string
	StatusOK   bool
	Charts     []chartModel
	Bars       []barModel
	DrillDown  bool
	Generated  string
}

// ServeHTTP renders GET /.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	view := h.refresher.View()
	model := pageModel{
		Mode:      string(view.Mode),
		Modes:     []string{"1d", "2d", "7d", "peak-week", "peak-month"},
		Generated: time.Now().In(h.loc).Format("2006-01-02 15:04:05"),
	}

	if status, ok := h.refresher.Status(); ok {
		model.StatusOK = status.Success
		model.StatusLine = fmt.Sprintf("last scrape %s: %s",
			status.LastRun.In(h.loc).Format("15:04:05"), status.Message)
	} else {
		model.StatusLine = "collector status unavailable"
	}

	if view.DrillDown != nil {
		model.DrillDown = true
		model.Charts = append(model.Charts, buildChartModel(*view.DrillDown, h.loc))
	} else if view.Mode == dashboard.ViewPeakWeek || view.Mode == dashboard.ViewPeakMonth {
		for _, bar := range view.PeakBars {
			model.Bars = append(model.Bars, buildBarModel(bar))
		}
	} else {
		for _, series := range view.Series {
			model.Charts = append(model.Charts, buildChartModel(series, h.loc))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, model); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func buildChartModel(series dashboard.DaySeries, loc *time.Location) chartModel {
	model := chartModel{
		ID:     series.Day.String(),
		Title:  series.Day.String(),
		Width:  chartWidth,
		Height: chartHeight,
	}

	span := series.MaxTime.Sub(series.MinTime)
	if span <= 0 {
		return model
	}
	scaleX := func(t time.Time) float64 {
		return float64(t.Sub(series.MinTime)) / float64(span) * chartWidth
	}
	scaleY := func(v *int) float64 {
		value := 0
		if v != nil {
			value = *v
		}
		return chartHeight - float64(value)/100*chartHeight
	}

	var lead, boulder strings.Builder
	for _, p := range series.Points {
		fmt.Fprintf(&lead, "%.1f,%.1f ", scaleX(p.Time), scaleY(p.Lead))
		fmt.Fprintf(&boulder, "%.1f,%.1f ", scaleX(p.Time), scaleY(p.Boulder))
	}
	model.LeadPoints = strings.TrimSpace(lead.String())
	model.BoulderPath = strings.TrimSpace(boulder.String())

	for t := series.MinTime; !t.After(series.MaxTime); t = t.Add(2 * time.Hour) {
		model.Hours = append(model.Hours, axisTick{X: scaleX(t), Label: t.In(loc).Format("15:04")})
	}
	return model
}

func buildBarModel(bar dashboard.PeakBar) barModel {
	model := barModel{Day: bar.Day.String()}
	if bar.Peak.MaxLead != nil {
		model.Lead = *bar.Peak.MaxLead
		model.LeadH = float64(model.Lead) / 100 * chartHeight
	}
	if bar.Peak.MaxBoulder != nil {
		model.Boulder = *bar.Peak.MaxBoulder
		model.BoulderH = float64(model.Boulder) / 100 * chartHeight
	}
	return model
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>cragwatch</title>
<style>
body { font-family: sans-serif; margin: 1.5rem; background: #fafafa; color: #222; }
h1 { font-size: 1.3rem; }
.status { margin: .5rem 0 1rem; font-size: .9rem; }
.status.ok { color: #2a7a2a; }
.status.bad { color: #b03030; }
.modes a { margin-right: .8rem; text-decoration: none; }
.modes a.active { font-weight: bold; text-decoration: underline; }
.chart { background: #fff; border: 1px solid #ddd; margin-bottom: 1.2rem; padding: .5rem; }
.chart h2 { font-size: 1rem; margin: 0 0 .4rem; }
.lead { stroke: #c0392b; fill: none; stroke-width: 2; }
.boulder { stroke: #2980b9; fill: none; stroke-width: 2; }
.tick { stroke: #eee; }
.tick-label { font-size: 10px; fill: #888; }
.cursor-line { stroke: #555; stroke-dasharray: 3 3; display: none; }
.bars { display: flex; align-items: flex-end; gap: 10px; height: 280px; }
.bar-group { display: flex; flex-direction: column; align-items: center; cursor: pointer; }
.bar-pair { display: flex; align-items: flex-end; gap: 2px; height: 260px; }
.bar-lead { width: 18px; background: #c0392b; }
.bar-boulder { width: 18px; background: #2980b9; }
.bar-day { font-size: .7rem; margin-top: .3rem; }
.exports { margin-top: 1rem; font-size: .85rem; }
</style>
</head>
<body>
<h1>Climbing Gym Occupancy</h1>
<div class="status {{if .StatusOK}}ok{{else}}bad{{end}}">{{.StatusLine}} &middot; rendered {{.Generated}}</div>
<div class="modes">
{{$current := .Mode}}{{range .Modes}}<a href="#" data-mode="{{.}}" class="{{if eq . $current}}active{{end}}">{{.}}</a>{{end}}
</div>

{{range .Charts}}
<div class="chart" data-chart="{{.ID}}">
<h2>{{.Title}}</h2>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{range .Hours}}<line class="tick" x1="{{.X}}" y1="0" x2="{{.X}}" y2="260"></line>
<text class="tick-label" x="{{.X}}" y="258">{{.Label}}</text>{{end}}
<polyline class="lead" points="{{.LeadPoints}}"></polyline>
<polyline class="boulder" points="{{.BoulderPath}}"></polyline>
<line class="cursor-line" x1="0" y1="0" x2="0" y2="{{.Height}}"></line>
</svg>
</div>
{{end}}

{{if .Bars}}
<div class="bars">
{{range .Bars}}
<div class="bar-group" data-day="{{.Day}}">
<div class="bar-pair">
<div class="bar-lead" style="height: {{.LeadH}}px" title="lead {{.Lead}}%"></div>
<div class="bar-boulder" style="height: {{.BoulderH}}px" title="boulder {{.Boulder}}%"></div>
</div>
<div class="bar-day">{{.Day}}</div>
</div>
{{end}}
</div>
{{end}}

<div class="exports">
<a href="/export/peaks.xlsx">peaks.xlsx</a> &middot;
<a href="/export/week.pdf">week.pdf</a> &middot;
<a href="/export/samples.csv">samples.csv</a> &middot;
<a href="/metrics">metrics</a>
</div>

<script>
(function () {
	var stream = new EventSource("/api/v1/refresh/stream");
	stream.addEventListener("refresh", function () { location.reload(); });

	document.querySelectorAll(".modes a").forEach(function (link) {
		link.addEventListener("click", function (ev) {
			ev.preventDefault();
			fetch("/api/v1/view", {
				method: "POST",
				headers: {"Content-Type": "application/json"},
				body: JSON.stringify({mode: link.dataset.mode})
			}).then(function () { location.reload(); });
		});
	});

	document.querySelectorAll(".bar-group").forEach(function (group) {
		group.addEventListener("click", function () {
			fetch("/api/v1/drilldown", {
				method: "POST",
				headers: {"Content-Type": "application/json"},
				body: JSON.stringify({day: group.dataset.day})
			}).then(function () { location.reload(); });
		});
	});

	function applyStates(states) {
		document.querySelectorAll(".chart").forEach(function (chart) {
			var line = chart.querySelector(".cursor-line");
			var state = states[chart.dataset.chart];
			if (state) {
				line.setAttribute("x1", state.cursorX);
				line.setAttribute("x2", state.cursorX);
				line.style.display = "block";
			} else {
				line.style.display = "none";
			}
		});
	}

	document.querySelectorAll(".chart").forEach(function (chart) {
		var svg = chart.querySelector("svg");
		svg.addEventListener("mousemove", function (ev) {
			var rect = svg.getBoundingClientRect();
			fetch("/api/v1/cursor", {
				method: "POST",
				headers: {"Content-Type": "application/json"},
				body: JSON.stringify({chart: chart.dataset.chart, x: ev.clientX - rect.left})
			}).then(function (resp) { return resp.json(); }).then(applyStates);
		});
		svg.addEventListener("mouseleave", function () {
			fetch("/api/v1/cursor", {
				method: "POST",
				headers: {"Content-Type": "application/json"},
				body: JSON.stringify({leave: true})
			}).then(function () { applyStates({}); });
		});
	});
})();
</script>
</body>
</html>`
