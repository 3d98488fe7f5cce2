package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "cragwatch_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	scrapeTotal   *prometheus.CounterVec
	scrapeLatency *prometheus.HistogramVec

	samplesStored prometheus.Gauge
	samplesPruned prometheus.Counter

	refreshTotal   *prometheus.CounterVec
	refreshLatency *prometheus.HistogramVec

	viewBuildErrors *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	alertsSent prometheus.Counter
)

// Init registers observability metrics.
func Init() {
	registerOnce.Do(func() {
		scrapeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scrape_total",
				Help: "Total occupancy scrapes by result",
			},
			[]string{"result"},
		)
		scrapeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "scrape_latency_seconds",
				Help:    "Occupancy scrape latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		samplesStored = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "samples_stored",
				Help: "Samples currently held in the rolling window",
			},
		)
		samplesPruned = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "samples_pruned_total",
				Help: "Samples dropped by retention pruning",
			},
		)

		refreshTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_refresh_total",
				Help: "Total dashboard data refreshes by result",
			},
			[]string{"result"},
		)
		refreshLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_refresh_latency_seconds",
				Help:    "Dashboard refresh latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		viewBuildErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "view_build_errors_total",
				Help: "View materialization failures by mode",
			},
			[]string{"mode"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		alertsSent = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "crowding_alerts_total",
				Help: "Crowding alert notifications sent",
			},
		)

		prometheus.MustRegister(
			scrapeTotal,
			scrapeLatency,
			samplesStored,
			samplesPruned,
			refreshTotal,
			refreshLatency,
			viewBuildErrors,
			exportTotal,
			exportLatency,
			alertsSent,
		)
	})
}

// ObserveScrape records one scrape duration and result.
func ObserveScrape(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if scrapeTotal != nil {
		scrapeTotal.WithLabelValues(result).Inc()
	}
	if scrapeLatency != nil {
		scrapeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// SetSamplesStored sets the rolling-window gauge.
func SetSamplesStored(count int) {
	if samplesStored != nil {
		samplesStored.Set(float64(count))
	}
}

// AddSamplesPruned counts retention-pruned samples.
func AddSamplesPruned(count int) {
	if count > 0 && samplesPruned != nil {
		samplesPruned.Add(float64(count))
	}
}

// ObserveRefresh records one dashboard refresh duration and result.
func ObserveRefresh(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if refreshTotal != nil {
		refreshTotal.WithLabelValues(result).Inc()
	}
	if refreshLatency != nil {
		refreshLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncViewBuildError counts a failed view materialization.
func IncViewBuildError(mode string) {
	if mode == "" {
		mode = "unknown"
	}
	if viewBuildErrors != nil {
		viewBuildErrors.WithLabelValues(mode).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncAlertSent counts one crowding notification.
func IncAlertSent() {
	if alertsSent != nil {
		alertsSent.Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
