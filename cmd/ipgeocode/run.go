package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/evyataryagoni/ipgeocode/internal/config"
	"github.com/evyataryagoni/ipgeocode/internal/credentials"
	"github.com/evyataryagoni/ipgeocode/internal/service"
	"github.com/evyataryagoni/ipgeocode/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	input  string
	output string
	sink   string
	apiKey string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Geocode a local CSV file of IP addresses",
		Long: `Reads one IP address per line, looks each one up in input order and
writes one output row per input row. Failed lookups are kept as rows
carrying an error column.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input CSV file (default $INPUT_CSV)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output CSV file (default $OUTPUT_CSV)")
	cmd.Flags().StringVar(&opts.sink, "sink", "", "output sink: csv, mysql or redis (default $SINK_TYPE)")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "API key (default $GEO_API_KEY, then Secret Manager)")

	return cmd
}

func runLocal(ctx context.Context, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(appConfig, opts)

	appLogger := setupLogger(appConfig)
	m := setupMetrics(prometheus.NewRegistry(), appLogger)

	keys, err := setupCredentials(ctx, appConfig, opts.apiKey)
	if err != nil {
		return err
	}
	defer keys.Close()

	sink, err := setupSink(appConfig)
	if err != nil {
		return err
	}
	defer sink.Close()

	source := store.NewCSVFileSource(appConfig.InputCSV)
	job := service.NewJob(keys, setupEnricher(appConfig, m, appLogger), m)

	appLogger.Info().
		Str("input", source.String()).
		Str("output", sink.String()).
		Msg("Starting geocoding")

	summary, err := job.Run(ctx, source, sink)
	if err != nil {
		return err
	}

	appLogger.Info().
		Int("rows", summary.Rows).
		Int("failures", summary.Failures).
		Str("output", summary.Output).
		Msg("Geocoded file written")

	return nil
}

// applyRunFlags lets command line flags override the environment
func applyRunFlags(appConfig *config.Config, opts *runOptions) {
	if opts.input != "" {
		appConfig.InputCSV = opts.input
	}
	if opts.output != "" {
		appConfig.OutputCSV = opts.output
	}
	if opts.sink != "" {
		appConfig.SinkType = opts.sink
	}
}

// setupCredentials picks the key source of a run or of the server
// An explicit key wins, then GEO_API_KEY; otherwise Secret Manager is used
// when a project is configured
func setupCredentials(ctx context.Context, appConfig *config.Config, flagKey string) (credentials.Provider, error) {
	if flagKey != "" {
		return credentials.NewStaticProvider(flagKey), nil
	}
	if appConfig.GeoAPIKey != "" || appConfig.GCPProjectID == "" {
		return credentials.NewStaticProvider(appConfig.GeoAPIKey), nil
	}

	provider, err := credentials.NewSecretManagerProvider(ctx, appConfig.GCPProjectID, appConfig.SecretName, appConfig.SecretVersion)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// setupSink initializes the output sink based on configuration
// Supports a CSV file, MySQL, and Redis
func setupSink(appConfig *config.Config) (store.Sink, error) {
	switch appConfig.SinkType {
	case "csv", "":
		return store.NewCSVFileSink(appConfig.OutputCSV), nil

	case "mysql":
		sink, err := store.NewMySQLStore(appConfig.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return sink, nil

	case "redis":
		sink, err := store.NewRedisStore(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB, 0)
		if err != nil {
			return nil, err
		}
		return sink, nil

	default:
		return nil, fmt.Errorf("unknown sink type: %s (supported: 'csv', 'mysql', 'redis')", appConfig.SinkType)
	}
}
