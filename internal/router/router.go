package router

import (
	"net/http"

	"github.com/evyataryagoni/ipgeocode/internal/handler"
	"github.com/evyataryagoni/ipgeocode/internal/logger"
	"github.com/evyataryagoni/ipgeocode/internal/metrics"
	custommiddleware "github.com/evyataryagoni/ipgeocode/internal/middleware"
	v1 "github.com/evyataryagoni/ipgeocode/internal/router/v1"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Chi router with all middleware and routes
//
// Parameters:
//   - triggerHandler: the storage event receiver
//   - geocodeHandler: the synchronous batch handler
//   - m: metrics collector
//   - gatherer: registry served on /metrics
//   - log: structured logger
func SetupRouter(triggerHandler *handler.TriggerHandler, geocodeHandler *handler.GeocodeHandler, m *metrics.Metrics, gatherer prometheus.Gatherer, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	// Order matters: RequestID first so the logger can see it
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.MetricsMiddleware(m))

	// Storage events are delivered to the service root
	r.Post("/", triggerHandler.HandleStorageEvent)

	r.Mount("/v1", v1.SetupRoutes(geocodeHandler))

	r.Get("/health", healthCheckHandler)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// healthCheckHandler is a simple health check endpoint
// Returns 200 OK if the service is running
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
