package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/handler"
	"github.com/evyataryagoni/ipgeocode/internal/router"
	"github.com/evyataryagoni/ipgeocode/internal/service"
	"github.com/evyataryagoni/ipgeocode/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight runs may finish after SIGTERM
const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive storage events and geocode uploaded files",
		Long: `Starts an HTTP server. POST / accepts an "object finalized" storage
event, geocodes the object and writes $OUTPUT_BUCKET/$OUTPUT_PREFIX<name>.
The API key is $GEO_API_KEY when set; otherwise it is read from Secret
Manager on every event.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default $PORT)")

	return cmd
}

func serve(ctx context.Context, port string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig, err := loadConfig()
	if err != nil {
		return err
	}
	if port != "" {
		appConfig.Port = port
	}

	appLogger := setupLogger(appConfig)
	m := setupMetrics(prometheus.DefaultRegisterer, appLogger)

	keys, err := setupCredentials(ctx, appConfig, "")
	if err != nil {
		return err
	}
	defer keys.Close()

	storage, err := store.NewGCSStorage(ctx)
	if err != nil {
		return err
	}
	defer storage.Close()

	// Build application layers
	enricher := setupEnricher(appConfig, m, appLogger)
	job := service.NewJob(keys, enricher, m)

	triggerHandler := handler.NewTriggerHandler(job, storage, appConfig.OutputBucket, appConfig.OutputPrefix, appLogger)
	geocodeHandler := handler.NewGeocodeHandler(enricher, keys, appLogger)
	appRouter := router.SetupRouter(triggerHandler, geocodeHandler, m, prometheus.DefaultGatherer, appLogger)

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           appRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("port", appConfig.Port).
			Str("output_bucket", appConfig.OutputBucket).
			Str("health_check", "http://localhost:"+appConfig.Port+"/health").
			Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
			Msg("Server is running")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
