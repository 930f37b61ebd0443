package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/desertthunder/spotsync/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// TUI launches the interactive playlist manager.
//
// Logs go to a file and plain output is discarded while the program owns the terminal.
// Unless disabled, an update pass also runs every sync interval in the background;
// manual updates from the UI go through the same worker.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	fileLogger, err := shared.NewFileLogger(shared.ExpandHome(cmd.String("log-file")))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	output := r.output
	r.output = io.Discard
	defer func() { r.output = output }()

	if r.credentials == nil {
		r.credentials = &shared.Credentials{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if !cmd.Bool("no-background") {
		scheduler := r.backgroundScheduler()
		r.scheduler = scheduler
		defer func() { r.scheduler = nil }()
		g.Go(func() error {
			return scheduler.Run(gctx)
		})
	}

	model := ui.NewModel(gctx, ui.Options{
		Credentials:     r.credentials,
		CredentialsPath: r.config.Paths.Credentials,
		Connect:         r.connectUI,
		DownloadOpts: tasks.BulkDownloadOpts{
			NumWorkers: r.config.Sync.Workers,
			RateLimit:  r.config.Sync.RateLimit,
		},
		DryRun: r.config.Sync.DryRun,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	_, runErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", runErr)
	}

	return nil
}

// backgroundScheduler runs an update pass every sync interval, starting one interval from now.
func (r *Runner) backgroundScheduler() *tasks.Scheduler {
	return tasks.NewScheduler(r.updateJob(), tasks.SchedulerOpts{
		Interval: r.config.Sync.Interval.Duration,
		Logger:   shared.WithLogger(r.logger, "component", "scheduler"),
	})
}

// uiEngine returns the engine handed to the UI, serialized behind the background scheduler when one runs.
func (r *Runner) uiEngine() tasks.SyncEngine {
	engine := r.currentEngine()
	if r.scheduler == nil {
		return engine
	}
	return tasks.NewSerialEngine(engine, r.scheduler)
}

// connectUI authenticates with the cached token, running the browser flow when there is none.
func (r *Runner) connectUI(ctx context.Context, credentials *shared.Credentials) (services.Service, tasks.SyncEngine, error) {
	svc, err := r.connectSpotify(ctx, credentials)
	if errors.Is(err, shared.ErrNotAuthenticated) && svc != nil {
		r.logger.Info("no cached token, starting browser authorization")
		token, oauthErr := r.doOAuth(ctx, svc)
		if oauthErr != nil {
			return nil, nil, oauthErr
		}
		if err := shared.SaveToken(r.config.TokenPath(credentials.ClientID), token); err != nil {
			return nil, nil, err
		}
		err = svc.OAuthenticate(ctx, token)
	}
	if err != nil {
		return nil, nil, err
	}

	r.setSpotify(svc)
	return svc, r.uiEngine(), nil
}
