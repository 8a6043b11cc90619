package main

import (
	"os"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/config"
	"github.com/evyataryagoni/ipgeocode/internal/geo"
	"github.com/evyataryagoni/ipgeocode/internal/limiter"
	"github.com/evyataryagoni/ipgeocode/internal/logger"
	"github.com/evyataryagoni/ipgeocode/internal/metrics"
	"github.com/evyataryagoni/ipgeocode/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ipgeocode enriches a list of IP addresses with geolocation data
//
//	ipgeocode run    geocode a local CSV file
//	ipgeocode serve  receive storage events and geocode uploaded files
func main() {
	rootCmd := &cobra.Command{
		Use:           "ipgeocode",
		Short:         "Batch IP geolocation enrichment",
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCommand(), newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		logger.NewDefault().Error().Err(err).Msg("ipgeocode failed")
		os.Exit(1)
	}
}

// loadConfig loads and validates the environment configuration
func loadConfig() (*config.Config, error) {
	appConfig := config.Load()
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	return appConfig, nil
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:      appConfig.LogLevel,
		Pretty:     appConfig.LogPretty,
		OutputFile: appConfig.LogFile,
	})

	appLogger.Info().
		Str("api_url", appConfig.GeoAPIURL).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Int("rate_limit", appConfig.RateLimit).
		Int("rate_limit_window", appConfig.RateLimitWindow).
		Int("http_timeout", appConfig.GeoHTTPTimeout).
		Msg("Configuration loaded")

	return appLogger
}

// setupEnricher builds the API client, the limiter factory and the enricher
// Rate window pauses are both logged and counted
func setupEnricher(appConfig *config.Config, m *metrics.Metrics, log *logger.Logger) *service.Enricher {
	client := geo.NewClient(geo.Options{
		Endpoint: appConfig.GeoAPIURL,
		Fields:   appConfig.GeoAPIFields,
		Timeout:  appConfig.HTTPTimeout(),
	}, log.WithComponent("GeoClient"))

	onPause := func(calls int, wait time.Duration) {
		log.WindowPause(calls, wait)
		m.ObservePause(calls, wait)
	}
	newLimiter := limiter.NewFactory(appConfig.LimiterConfig(onPause))

	return service.NewEnricher(client, newLimiter, m, log.WithComponent("Enricher"))
}

// setupMetrics initializes the Prometheus metrics collector
func setupMetrics(reg prometheus.Registerer, log *logger.Logger) *metrics.Metrics {
	metricsCollector := metrics.New(reg)
	log.Debug().Msg("Metrics initialized")
	return metricsCollector
}
