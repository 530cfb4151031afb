package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ginsentry/internal/api/http"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/server"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/tracing"
)

var flags struct {
	configFile string
	profile    string
	port       int
	dev        bool
	envFile    string
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Demo server reporting errors and request traces to Sentry",
	Long: `Demo server reporting errors and request traces to Sentry.

Sentry is configured from the selected profile of the configuration file
(sentry_dsn, sentry_traces_sample_rate) or from APP_* environment variables.

Examples:
  # Debug profile, App.toml in the working directory
  server

  # Release profile on another port
  server --profile release --port 9000

  # Development logging
  server --dev`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "config file path (default $APP_CONFIG or App.toml)")
	rootCmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "configuration profile (default $APP_PROFILE or from gin mode)")
	rootCmd.Flags().IntVar(&flags.port, "port", 0, "override listen port")
	rootCmd.Flags().BoolVar(&flags.dev, "dev", false, "development logging (colored, debug level)")
	rootCmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

func run(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(flags.envFile); err != nil {
		return err
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	if flags.configFile != "" {
		settings.ConfigFile = flags.configFile
	}
	if flags.profile != "" {
		settings.Profile = flags.profile
	}

	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}
	if flags.port > 0 {
		cfg.Set("port", flags.port)
	}

	logger, err := newLogger(settings.Logging, flags.dev, cfg.Profile())
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	defaultRate, err := config.Float64Or(cfg, tracing.KeyTracesSampleRate, 0)
	if err != nil {
		// The fairing reports the invalid value at ignition.
		defaultRate = 0
	}

	fairing := tracing.New(logger,
		tracing.WithMetrics(metrics),
		tracing.WithSampler(apihttp.DemoSampler(defaultRate, logger)),
	)

	srv := server.New(cfg, logger)
	if err := srv.Attach(fairing); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Ignite(ctx); err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(context.Background()); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}()

	handlers := apihttp.NewHandlers(logger, fairing)
	if err := apihttp.SetupRoutes(srv.Router(), handlers, apihttp.RouterConfig{
		Config:   cfg,
		Metrics:  metrics,
		Gatherer: registry,
	}); err != nil {
		return err
	}

	logger.Info("Starting server",
		zap.String("profile", cfg.Profile()),
		zap.String("addr", srv.Addr()),
		zap.Bool("sentry", fairing.Enabled()),
	)
	return srv.Run(ctx)
}

func newLogger(cfg config.LogConfig, dev bool, profile string) (*logging.Logger, error) {
	lc := logging.Config{
		Level:       cfg.Level,
		Development: cfg.Development,
		Fields:      map[string]interface{}{"profile": profile},
	}
	if dev {
		lc.Level = "debug"
		lc.Development = true
	}
	return logging.New(lc)
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
