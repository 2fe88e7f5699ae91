package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carbonwatch/carbon-intensity-etl/internal/config"
	"github.com/carbonwatch/carbon-intensity-etl/internal/intensity"
	"github.com/carbonwatch/carbon-intensity-etl/internal/logging"
	"github.com/carbonwatch/carbon-intensity-etl/internal/pipeline"
	"github.com/carbonwatch/carbon-intensity-etl/internal/scheduler"
	"github.com/carbonwatch/carbon-intensity-etl/internal/store"
)

// runTimeout bounds a one-shot invocation end-to-end so a wedged upstream or
// database never leaves the external scheduler's job hanging.
const runTimeout = 2 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:          "carbon-etl",
		Short:        "Carbon-intensity ETL pipeline",
		Long:         "Fetches national carbon-intensity readings, validates them, and upserts them into the hosted database.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation means "run once now".
			return runOnce(false)
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run one ETL cycle",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(false)
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete rows older than the retention window",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(true)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run hourly ETL and daily cleanup with an in-process scheduler",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.AppConfig
	log   *zap.Logger
	pipe  *pipeline.Pipeline
	store store.Store
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	pg, err := store.NewPostgres(store.Config{
		URL:        cfg.StorageURL,
		ServiceKey: cfg.StorageServiceKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Shared HTTP client for outbound API calls with a bounded timeout.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := intensity.NewClient(httpClient, cfg.APIBaseURL)

	return &app{
		cfg:   cfg,
		log:   log,
		pipe:  pipeline.New(client, pg, log, cfg.RetentionWindow),
		store: pg,
	}, nil
}

func runOnce(cleanupOnly bool) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.store.Close()
	defer a.log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if cleanupOnly {
		return a.pipe.Cleanup(ctx)
	}
	return a.pipe.Run(ctx)
}

func serve() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.store.Close()
	defer a.log.Sync()

	sched := scheduler.New(a.pipe, a.cfg.FetchInterval, a.log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// Small operational surface: health and metrics only. The dashboard
	// binary carries the data API.
	fiberApp := fiber.New(fiber.Config{
		AppName:               "carbon-etl",
		DisableStartupMessage: true,
	})
	fiberApp.Use(recover.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "carbon-etl",
		})
	})
	fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		if err := fiberApp.Listen(":" + a.cfg.Port); err != nil {
			a.log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	a.log.Info("serve mode started",
		zap.Duration("fetchInterval", a.cfg.FetchInterval),
		zap.String("port", a.cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Error("error during shutdown", zap.Error(err))
	}
	return nil
}
