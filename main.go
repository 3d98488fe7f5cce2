package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"cragwatch/internal/alerts"
	collectorapp "cragwatch/internal/collector/application"
	collectorevents "cragwatch/internal/collector/application/events"
	"cragwatch/internal/collector/infrastructure/webclimber"
	collectorhttp "cragwatch/internal/collector/interfaces/http"
	dashapp "cragwatch/internal/dashboard/application"
	dashevents "cragwatch/internal/dashboard/application/events"
	dashboard "cragwatch/internal/dashboard/domain"
	"cragwatch/internal/dashboard/infrastructure/httpfeed"
	dashhttp "cragwatch/internal/dashboard/interfaces/http"
	"cragwatch/internal/eventing"
	"cragwatch/internal/hours"
	"cragwatch/internal/observability/metrics"
	"cragwatch/internal/occupancy/infrastructure/memory"
	"cragwatch/internal/occupancy/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatalf("timezone error: %v", err)
	}

	hoursCfg, err := hours.LoadConfig()
	if err != nil {
		logger.Fatalf("hours config error: %v", err)
	}

	metrics.Init()
	clock := systemClock{}
	bus := eventing.NewBus()
	ctx := context.Background()

	store := memory.NewSampleStore()

	var archive collectorapp.Archive
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		sampleArchive := postgres.NewSampleArchive(db)
		if err := sampleArchive.EnsureSchema(ctx); err != nil {
			logger.Fatalf("archive schema error: %v", err)
		}
		archive = sampleArchive
	}

	source, err := webclimber.NewClient(cfg.WidgetURL)
	if err != nil {
		logger.Fatalf("widget client error: %v", err)
	}

	collector, err := collectorapp.NewService(source, store, archive, bus, clock, cfg.Retention, logger)
	if err != nil {
		logger.Fatalf("collector service error: %v", err)
	}
	if err := collector.Restore(ctx); err != nil {
		logger.Printf("archive restore error: %v", err)
	}

	if cfg.AlertWebhookURL != "" {
		channel, err := alerts.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		notifier, err := alerts.NewNotifier(channel,
			alerts.WithThreshold(cfg.AlertThreshold),
			alerts.WithCooldown(cfg.AlertCooldown),
			alerts.WithDedupeWindow(cfg.AlertDedupeWindow),
		)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		bus.Subscribe(eventing.EventTypeOf[collectorevents.SampleRecorded](), func(ctx context.Context, event any) error {
			evt, ok := event.(collectorevents.SampleRecorded)
			if !ok {
				return eventing.ErrInvalidEventType
			}
			return notifier.HandleSampleRecorded(ctx, evt)
		})
	}

	scheduler := collectorapp.NewScheduler(collector, cfg.ScrapeInterval, logger)
	go scheduler.Start(ctx)

	var feed dashapp.Feed
	if cfg.FeedURL != "" {
		feed = httpfeed.NewClient(cfg.FeedURL)
	} else {
		feed = dashapp.NewLocalFeed(store, collector)
	}

	registry := dashboard.NewRegistry()
	selector, err := dashboard.NewSelector(registry, hoursCfg, clock, loc)
	if err != nil {
		logger.Fatalf("view selector error: %v", err)
	}
	refresher, err := dashapp.NewRefresher(feed, selector, bus, clock, dashboard.ViewMode(cfg.ViewMode), cfg.RefreshInterval, logger)
	if err != nil {
		logger.Fatalf("refresher error: %v", err)
	}
	go refresher.Start(ctx)

	refreshBroker := dashhttp.NewRefreshBroker()
	bus.Subscribe(eventing.EventTypeOf[dashevents.ViewRefreshed](), func(ctx context.Context, event any) error {
		evt, ok := event.(dashevents.ViewRefreshed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		return refreshBroker.HandleViewRefreshed(ctx, evt)
	})

	dataHandler, err := collectorhttp.NewDataHandler(store, collector)
	if err != nil {
		logger.Fatalf("data handler error: %v", err)
	}
	apiHandler, err := dashhttp.NewHandler(refresher, dashboard.NewSynchronizer(registry), feed, clock, loc)
	if err != nil {
		logger.Fatalf("api handler error: %v", err)
	}
	exportHandler, err := dashhttp.NewExportHandler(feed, clock, loc)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	pageHandler, err := dashhttp.NewPageHandler(refresher, loc)
	if err != nil {
		logger.Fatalf("page handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", pageHandler)
	mux.Handle("/samples.json", dataHandler)
	mux.Handle("/status.json", dataHandler)
	mux.Handle("/api/v1/view", apiHandler)
	mux.Handle("/api/v1/series", apiHandler)
	mux.Handle("/api/v1/peaks", apiHandler)
	mux.Handle("/api/v1/cursor", apiHandler)
	mux.Handle("/api/v1/drilldown", apiHandler)
	mux.Handle("/api/v1/refresh/stream", dashhttp.NewStreamHandler(refreshBroker))
	mux.Handle("/export/peaks.xlsx", exportHandler)
	mux.Handle("/export/week.pdf", exportHandler)
	mux.Handle("/export/samples.csv", exportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	HTTPAddr          string
	WidgetURL         string
	FeedURL           string
	DatabaseURL       string
	Timezone          string
	ViewMode          string
	ScrapeInterval    time.Duration
	RefreshInterval   time.Duration
	Retention         time.Duration
	AlertWebhookURL   string
	AlertThreshold    int
	AlertCooldown     time.Duration
	AlertDedupeWindow time.Duration
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		WidgetURL:         getenvDefault("WIDGET_URL", ""),
		FeedURL:           getenvDefault("FEED_URL", ""),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		Timezone:          getenvDefault("GYM_TIMEZONE", "Europe/Berlin"),
		ViewMode:          getenvDefault("VIEW_MODE", "2d"),
		ScrapeInterval:    getenvDuration("SCRAPE_INTERVAL", 5*time.Minute),
		RefreshInterval:   getenvDuration("REFRESH_INTERVAL", time.Minute),
		Retention:         getenvDuration("SAMPLE_RETENTION", 7*24*time.Hour),
		AlertWebhookURL:   getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertThreshold:    getenvIntDefault("ALERT_THRESHOLD", 90),
		AlertCooldown:     getenvDuration("ALERT_COOLDOWN", 30*time.Minute),
		AlertDedupeWindow: getenvDuration("ALERT_DEDUP_WINDOW", 0),
	}
	if cfg.WidgetURL == "" {
		log.Fatal("WIDGET_URL is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
