package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aatumaykin/campusnews/internal/bus"
	"github.com/aatumaykin/campusnews/internal/dispatcher"
	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/metrics"
	"github.com/aatumaykin/campusnews/internal/retry"
	"github.com/aatumaykin/campusnews/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder dispatcher (main command)",
		Long: `Start the reminder dispatcher with the given configuration.
This initializes the store, the announcement bus, the dispatcher and the
optional metrics endpoint, then runs until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			logger.SetDefault(a.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, a, prometheus.NewRegistry())
		},
	}
}

// runServe wires the daemon and blocks until ctx is done.
func runServe(ctx context.Context, a *app, reg *prometheus.Registry) error {
	cfg := a.cfg
	log := a.log

	log.Info("🚀 Starting campusnews",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "storage", Value: cfg.Storage.Driver},
		logger.Field{Key: "timezone", Value: a.calc.Location().String()},
		logger.Field{Key: "poll_spec", Value: cfg.Scheduler.PollSpec})

	var m *metrics.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(cfg.Metrics.Namespace, reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("📊 Metrics endpoint listening", logger.Field{Key: "addr", Value: cfg.Metrics.Listen})
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", err)
			}
		}()
	}

	log.Info("📡 Initializing announcement bus", logger.Field{Key: "capacity", Value: cfg.Bus.Capacity})
	announcements := bus.New(cfg.Bus.Capacity, cfg.Bus.SubscriberBuffer, log)
	if err := announcements.Start(ctx); err != nil {
		return fmt.Errorf("start announcement bus: %w", err)
	}

	delivered := make(chan struct{})
	go deliver(announcements.Subscribe(ctx), log, delivered)

	d, err := dispatcher.New(dispatcher.Config{
		PollSpec:    cfg.Scheduler.PollSpec,
		MissedGrace: cfg.Scheduler.MissedGrace(),
		Calculator:  a.calc,
		Retry: retry.Config{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
		},
		Clock:   a.clock,
		Metrics: m,
		Limiter: cfg.Scheduler.Limiter(),
	}, a.store, announcements, log)
	if err != nil {
		_ = announcements.Stop()
		return err
	}
	if err := d.Start(ctx); err != nil {
		_ = announcements.Stop()
		return err
	}

	log.Info(version.FormatStartupMessage())

	<-ctx.Done()
	log.Info("⏳ Received shutdown signal")

	// Graceful shutdown
	if err := d.Stop(); err != nil {
		log.Error("failed to stop dispatcher", err)
	}
	if err := announcements.Stop(); err != nil {
		log.Error("failed to stop announcement bus", err)
	}
	<-delivered

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop metrics server", err)
		}
	}

	log.Info("✅ campusnews stopped")
	return nil
}

// deliver hands announcements to the channel transport. The transport is
// external; here every announcement is logged as a structured record.
func deliver(ch <-chan bus.Announcement, log *logger.Logger, done chan<- struct{}) {
	defer close(done)
	log = log.Named("delivery")

	for a := range ch {
		log.Info("📣 announcement",
			logger.Field{Key: "announcement_id", Value: a.ID},
			logger.Field{Key: "reminder_id", Value: a.ReminderID},
			logger.Field{Key: "channel_id", Value: a.ChannelID},
			logger.Field{Key: "author_id", Value: a.AuthorID},
			logger.Field{Key: "priority", Value: string(a.Priority)},
			logger.Field{Key: "title", Value: a.Title},
			logger.Field{Key: "occurrence", Value: a.Occurrence},
			logger.Field{Key: "late", Value: a.Late().String()})
	}
}
