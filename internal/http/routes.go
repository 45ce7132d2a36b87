package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/ws"
)

// SetupRoutes configures all HTTP routes for the water quality API.
// collector and gatherer may be nil to disable request metrics and /metrics.
func SetupRoutes(handlers *Handlers, wsHub *ws.Hub, collector *metrics.Collector, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if collector != nil {
		r.Use(requestMetrics(collector))
	}

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, specify allowed origins
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// System stats
		r.Get("/stats", handlers.GetSystemStats)

		// Stateless computation
		r.Post("/ica/compute", handlers.ComputeICA)

		// Monitoring station samples
		r.Route("/monitorings", func(r chi.Router) {
			r.Post("/", handlers.CreateFieldMonitoring)
			r.Get("/", handlers.GetFieldMonitorings)
			r.Get("/latest", handlers.GetLatestFieldMonitorings)
			r.Get("/{id}", handlers.GetFieldMonitoring)
		})

		// Discharge point samples
		r.Route("/discharges", func(r chi.Router) {
			r.Post("/", handlers.CreateDischargeMonitoring)
			r.Get("/", handlers.GetDischargeMonitorings)
			r.Get("/{id}", handlers.GetDischargeMonitoring)
		})

		r.Get("/quality/summary", handlers.GetQualitySummary)

		// Reports
		r.Route("/export", func(r chi.Router) {
			r.Get("/ica.xlsx", handlers.ExportICAExcel)
			r.Get("/ica.csv", handlers.ExportICACSV)
			r.Post("/archive", handlers.ArchiveReport)
		})
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// WebSocket route for real-time updates
	if wsHub != nil {
		r.HandleFunc("/ws", wsHub.HandleWebSocket)
	}

	return r
}

// requestMetrics counts requests by route pattern, method and status
func requestMetrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.RecordAPIRequest(route, r.Method, strconv.Itoa(status))
		})
	}
}
