package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/api/handlers"
	mw "github.com/Harshitk-cp/epistemic/internal/api/middleware"
	"github.com/Harshitk-cp/epistemic/internal/buildconfig"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the wired services the router serves.
type Deps struct {
	DB     Pinger
	Ledger handlers.Ledger
	Engine handlers.ConfidenceEngine
	Notes  handlers.Notes
	Audit  handlers.AuditLog
	Logger *zap.Logger

	GatewayToken   string
	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and the counters behind /metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	argumentHandler := handlers.NewArgumentHandler(d.Ledger, d.Engine, logger)
	factHandler := handlers.NewFactHandler(d.Ledger, d.Engine, logger)
	noteHandler := handlers.NewNoteHandler(d.Notes, logger)
	auditHandler := handlers.NewAuditHandler(d.Audit, logger)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
	}
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Order matters: request id before logging, RealIP before the limiter.
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if d.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(d.RateLimitRPS, d.RateLimitBurst))
	}

	r.Get("/health", healthHandler(d.DB))
	r.Get("/metrics", app.metricsHandler())
	r.Handle("/metrics/prometheus", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.GatewayAuth(d.GatewayToken))

		r.Route("/arguments", func(r chi.Router) {
			r.Get("/", argumentHandler.List)
			r.Post("/", argumentHandler.Create)
			r.Post("/similar", argumentHandler.Similar)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", argumentHandler.GetByID)
				r.Post("/support", argumentHandler.Support)
				r.Post("/refute", argumentHandler.Refute)
				r.Put("/confidence", argumentHandler.SetConfidence)
				r.Post("/facts", argumentHandler.LinkFact)
			})
		})

		r.Route("/facts", func(r chi.Router) {
			r.Get("/", factHandler.List)
			r.Post("/", factHandler.Create)
			r.Post("/similar", factHandler.Similar)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", factHandler.GetByID)
				r.Post("/cite", factHandler.Cite)
				r.Post("/challenge", factHandler.Challenge)
				r.Put("/confidence", factHandler.SetConfidence)
				r.Post("/recompute", factHandler.Recompute)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteHandler.List)
			r.Post("/", noteHandler.Create)
			r.Get("/appeals", noteHandler.PendingAppeals)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", noteHandler.GetByID)
				r.Post("/votes", noteHandler.Vote)
				r.Post("/appeal", noteHandler.Appeal)
				r.Post("/resolve", noteHandler.Resolve)
				r.Get("/effectiveness", noteHandler.Effectiveness)
			})
		})

		r.Get("/audit", auditHandler.ByInteraction)
		r.Get("/audit/{type}/{id}", auditHandler.History)
	})

	return app
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := buildconfig.Current()
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":  "error",
					"error":   err.Error(),
					"version": info.Version,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": info.Version,
			"commit":  info.Commit,
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
