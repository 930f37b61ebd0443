package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/spotsync/internal/server"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Daemon runs an update pass on every interval until interrupted.
//
// When a metrics address is configured, /metrics, /healthz and POST /trigger are served alongside the scheduler.
func (r *Runner) Daemon(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if !r.config.Sync.DryRun {
		if err := r.checkDependencies(ctx); err != nil {
			return err
		}
	}

	interval := r.config.Sync.Interval.Duration
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	addr := r.config.Server.MetricsAddr
	if cmd.IsSet("metrics-addr") {
		addr = cmd.String("metrics-addr")
	}

	metrics := r.enableMetrics()
	logger := shared.WithLogger(r.logger, "component", "daemon")

	scheduler := tasks.NewScheduler(r.updateJob(), tasks.SchedulerOpts{
		Interval:   interval,
		RunOnStart: !cmd.Bool("skip-first"),
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if addr != "" {
		router := server.NewBasicRouter()
		router.Use(server.LoggingMiddleware(logger))
		metrics.Register(router)
		router.Handle(http.MethodPost, "/trigger", triggerHandler(scheduler))

		g.Go(func() error {
			return server.Serve(gctx, addr, router, logger)
		})
	}

	r.writePlain("spotsync daemon: syncing every %s into %s\n", scheduler.Interval(), r.config.Paths.Playlists)
	if addr != "" {
		r.writePlain("metrics on http://%s/metrics\n", addr)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

// updateJob is the scheduled work: one full update pass.
func (r *Runner) updateJob() tasks.Job {
	return func(ctx context.Context) error {
		_, err := r.currentEngine().Update(ctx, nil, tasks.UpdateOpts{DryRun: r.config.Sync.DryRun})
		return err
	}
}

// triggerHandler queues an immediate pass and reports whether it was coalesced into a pending one.
func triggerHandler(s *tasks.Scheduler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		queued := s.Trigger()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]bool{"queued": queued})
	})
}
