package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-resolver/internal/alerts"
	"github.com/miradorstack/mirador-resolver/internal/api"
	"github.com/miradorstack/mirador-resolver/internal/config"
	"github.com/miradorstack/mirador-resolver/internal/engine"
	"github.com/miradorstack/mirador-resolver/internal/extractors"
	"github.com/miradorstack/mirador-resolver/internal/metrics"
	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/repo"
	"github.com/miradorstack/mirador-resolver/internal/scheduler"
	"github.com/miradorstack/mirador-resolver/internal/services"
	"github.com/miradorstack/mirador-resolver/internal/utils"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC resolver, log tailer and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func engineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.HistoryCapacity = cfg.Engine.HistoryCapacity
	opts.TimestampCapacity = cfg.Engine.TimestampCapacity
	opts.LedgerCapacity = cfg.Engine.LedgerCapacity
	opts.RecurrenceThreshold = cfg.Engine.RecurrenceThreshold
	opts.DefaultFlags = models.Flags{
		MaintenanceWindow: cfg.Engine.MaintenanceWindow,
		AutoFixEnabled:    cfg.Engine.AutoFixEnabled,
	}
	opts.MaxAverageGenerationTime = cfg.Engine.MaxAverageGenerationTime
	opts.ReportWindow = cfg.Engine.ReportWindow
	opts.Alerts = alerts.Thresholds{
		ErrorRatePerHour:      cfg.Alerts.ErrorRatePerHour,
		TrendingUp:            cfg.Alerts.TrendingUp,
		FailedResolutionRatio: cfg.Alerts.FailedResolutionRatio,
		FailureWindow:         cfg.Alerts.FailureWindow,
		CriticalPerDay:        cfg.Alerts.CriticalPerDay,
		CriticalPerDayStrict:  cfg.Alerts.CriticalPerDayStrict,
	}
	return opts
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, utils.LogFile{
		Path:       cfg.Logging.File.Path,
		MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
		MaxBackups: cfg.Logging.File.MaxBackups,
		MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		Compress:   cfg.Logging.File.Compress,
	})
	slog.SetDefault(logger)
	logger.Info("starting mirador-resolver", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	notifiers := alerts.Fanout{alerts.NewLogNotifier(logger, cfg.Alerts.LogEvery, cfg.Alerts.LogBurst)}
	if cfg.NATS.URL != "" {
		natsNotifier, err := alerts.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			logger.Warn("nats alert sink unavailable", slog.Any("error", err))
		} else {
			defer natsNotifier.Close()
			notifiers = append(notifiers, natsNotifier)
		}
	}

	guidance, err := engine.NewGuidanceEngine(cfg.Guidance.Path, logger)
	if err != nil {
		return fmt.Errorf("load guidance pack: %w", err)
	}

	eng := engine.New(logger, engineOptions(cfg),
		engine.WithNotifier(notifiers),
		engine.WithGuidance(guidance),
	)

	service := services.NewResolverService(logger, eng)
	server, err := api.NewServer(cfg.Server, service)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// The resolver service reports NOT_SERVING until the checkpoint is restored.
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("gRPC server exited: %w", err)
		}
		return nil
	})

	var checkpoints *repo.CheckpointRepo
	if cfg.Checkpoint.Enabled {
		checkpoints, err = repo.NewCheckpointRepo(cfg.Checkpoint.Path)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer checkpoints.Close()
		restored, err := eng.RestoreCheckpoint(gctx, checkpoints)
		if err != nil {
			logger.Warn("checkpoint restore failed", slog.Any("error", err))
		} else if restored {
			logger.Info("checkpoint restored", slog.String("path", cfg.Checkpoint.Path))
		}
	}
	server.MarkReady()

	jobs := scheduler.New(logger)
	if err := jobs.Add("alerts", cfg.Alerts.Schedule, func(ctx context.Context) error {
		eng.CheckAlerts(ctx)
		return nil
	}); err != nil {
		return err
	}
	if checkpoints != nil {
		if err := jobs.Add("checkpoint", cfg.Checkpoint.Schedule, func(ctx context.Context) error {
			return eng.SaveCheckpoint(ctx, checkpoints)
		}); err != nil {
			return err
		}
	}


	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server exited: %w", err)
			}
			return nil
		})
	}

	if len(cfg.Intake.LogPaths) > 0 {
		tailer, err := extractors.NewTailer(logger, cfg.Intake.LogPaths, func(ctx context.Context, rec models.ErrorRecord) {
			res := eng.Resolve(ctx, rec)
			logger.Info("resolved error from log",
				slog.String("error_type", string(rec.Type)),
				slog.String("strategy", string(res.Plan.Strategy)),
				slog.String("resolution_id", res.Plan.ID),
			)
		})
		if err != nil {
			return fmt.Errorf("create log tailer: %w", err)
		}
		g.Go(func() error { return tailer.Run(gctx) })
	}

	jobs.Start()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()

		jobs.Stop(shutdownCtx)
		server.Shutdown(shutdownCtx)
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}
		if checkpoints != nil {
			if err := eng.SaveCheckpoint(shutdownCtx, checkpoints); err != nil {
				logger.Warn("final checkpoint failed", slog.Any("error", err))
			}
		}
		return nil
	})

	err = g.Wait()
	logger.Info("mirador-resolver stopped")
	return err
}
