package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"servopanel/internal/backend"
	"servopanel/internal/config"
	"servopanel/internal/handlers"
	"servopanel/internal/logger"
	"servopanel/internal/models"
	"servopanel/internal/repository"
	"servopanel/internal/repository/db"
	"servopanel/internal/server"
	"servopanel/internal/service"
	"servopanel/internal/telemetry"
)

const (
	shutdownTimeout = 10 * time.Second
	telemetryBuffer = 256
)

func addServe(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control panel API, event stream and reconciliation loops.",
		Example: `
servopanel serve
SERVOPANEL_BACKEND_URL=http://pi.local:5000 servopanel serve --config ./configs
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("error reading config: %w", err)
			}
			log := logger.Get(cfg.LogLevel)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	topLevel.AddCommand(cmd)
}

func serviceOptions(cfg *config.Config) service.Options {
	return service.Options{
		Debounce:    cfg.Motion.Debounce,
		SweepSettle: cfg.Motion.SweepSettle,
		SweepMargin: cfg.Backend.Timeout,
		DefaultSweep: models.SweepParams{
			Step:  cfg.Motion.SweepStep,
			Delay: cfg.Motion.SweepDelay,
		},
		NudgeStep:       cfg.Motion.NudgeStep,
		StatusTTL:       cfg.Status.TTL,
		PositionsEvery:  cfg.Poll.Positions,
		HealthEvery:     cfg.Poll.Health,
		FollowUpTimeout: cfg.Backend.Timeout,
	}
}

// serve blocks until ctx is canceled or the HTTP server fails.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	sqlDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init sqlite: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB, cfg.SnapshotDir)
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	services := service.NewService(ctx, repos, client, log, serviceOptions(cfg))
	defer services.Close()

	recorder := telemetry.NewInflux(cfg.Influx, log)
	defer recorder.Close()
	feed, stopFeed := services.Events.Subscribe(telemetryBuffer)
	defer stopFeed()

	// The panel still starts with an empty fleet; the operator can reload later.
	if err := services.Fleet.Reload(ctx); err != nil {
		log.Warnw("initial_reload_failed", "backend", cfg.Backend.URL, "err", err)
	}

	srv := &server.Server{}
	apiHandler := handlers.NewHandler(services, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Reconciliation.Run(gctx)
	})
	g.Go(func() error {
		services.RunJournal(gctx)
		return nil
	})
	g.Go(func() error {
		recorder.Consume(gctx, feed)
		return nil
	})
	g.Go(func() error {
		log.Infow("http_listening", "port", cfg.Port, "backend", cfg.Backend.URL)
		if err := srv.Run(cfg.Port, apiHandler.InitRoutes()); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
