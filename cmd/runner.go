package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/downloader"
	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/server"
	"github.com/desertthunder/spotsync/internal/services"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// dependencyChecker is implemented by downloaders that rely on external executables.
type dependencyChecker interface {
	CheckDependencies(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	credentials *shared.Credentials
	spotify     services.Service
	downloader  downloader.Downloader
	store       tasks.StateRepository
	runs        *repositories.RunRepository
	metrics     *server.Metrics
	logger      *log.Logger
	output      io.Writer

	mu        sync.Mutex // guards spotify and engine while the TUI and its scheduler share them
	engine    *tasks.PlaylistEngine
	scheduler *tasks.Scheduler // set while the TUI runs background passes
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Credentials *shared.Credentials
	Spotify     services.Service
	Downloader  downloader.Downloader
	Store       tasks.StateRepository
	Runs        *repositories.RunRepository
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Store or Downloader is built from the config.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Store == nil {
		opts.Store = repositories.NewStateStore(opts.Config.Paths.State, opts.Logger)
	}
	if opts.Downloader == nil {
		opts.Downloader = downloader.New(opts.Config.Downloader, opts.Logger)
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		credentials: opts.Credentials,
		spotify:     opts.Spotify,
		downloader:  opts.Downloader,
		store:       opts.Store,
		runs:        opts.Runs,
		logger:      opts.Logger,
		output:      opts.Output,
	}
	r.engine = r.newEngine(r.spotify)
	return r
}

// newEngine wires a [tasks.PlaylistEngine] for service with the runner's store, history and metrics.
func (r *Runner) newEngine(service services.Service) *tasks.PlaylistEngine {
	opts := tasks.EngineOpts{
		Root:              r.config.Paths.Playlists,
		DownloadNewTracks: r.config.Sync.DownloadNewTracks,
		Logger:            r.logger,
	}
	if r.runs != nil {
		opts.Recorder = r.runs
	}
	if r.metrics != nil {
		opts.Observers = append(opts.Observers, r.metrics)
	}
	return tasks.NewPlaylistEngine(service, r.downloader, r.store, opts)
}

// setSpotify swaps the Spotify service and rebuilds the engine around it.
func (r *Runner) setSpotify(service services.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spotify = service
	r.engine = r.newEngine(service)
}

// currentEngine returns the engine built for the current service.
func (r *Runner) currentEngine() *tasks.PlaylistEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine
}

// enableMetrics attaches a metrics collector to every run of the engine.
func (r *Runner) enableMetrics() *server.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metrics == nil {
		r.metrics = server.NewMetrics()
		r.engine = r.newEngine(r.spotify)
	}
	return r.metrics
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	r.engine = r.newEngine(r.spotify)
}

// requireSpotify reports a missing or unauthenticated Spotify service.
func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized, run `spotsync setup credentials` and `spotsync auth login`", shared.ErrServiceUnavailable)
	}
	return nil
}

// checkDependencies verifies external downloader executables when the downloader has any.
func (r *Runner) checkDependencies(ctx context.Context) error {
	checker, ok := r.downloader.(dependencyChecker)
	if !ok {
		return nil
	}
	return checker.CheckDependencies(ctx)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, syncCommand, downloadCommand,
		daemonCommand, statusCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// progressPrinter prints progress messages until the returned stop function is called.
func (r *Runner) progressPrinter() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
