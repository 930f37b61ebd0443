// package tasks implements playlist reconciliation and download operations.
//
// The core abstraction is SyncEngine, which keeps local playlist folders in step with the remote service.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/downloader"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
)

// SyncEngine defines operations for keeping local playlist folders in sync.
type SyncEngine interface {
	// Update runs one reconciliation pass over the user's playlists.
	Update(ctx context.Context, progress chan<- ProgressUpdate, opts UpdateOpts) (*UpdateResult, error)

	// BulkDownload downloads whole playlists into their folders.
	BulkDownload(ctx context.Context, progress chan<- ProgressUpdate, playlists []models.Playlist, opts BulkDownloadOpts) (*BulkDownloadResult, error)
}

// StateRepository loads and saves the playlist snapshot.
type StateRepository interface {
	Load() (models.PlaylistState, error)
	Save(state models.PlaylistState) error
}

// RunRecorder persists finished runs (repositories.RunRepository).
type RunRecorder interface {
	Create(run *models.SyncRun) error
}

// RunObserver is notified of every finished run (server.Metrics).
type RunObserver interface {
	ObserveRun(run *models.SyncRun)
}

// EngineOpts holds the optional collaborators and settings of a [PlaylistEngine].
type EngineOpts struct {
	Root              string // Directory holding one folder per playlist
	DownloadNewTracks bool   // Fetch added tracks during reconciliation instead of only logging them
	Recorder          RunRecorder
	Observers         []RunObserver
	Logger            *log.Logger
}

// PlaylistEngine implements SyncEngine.
type PlaylistEngine struct {
	service     services.Service
	downloader  downloader.Downloader
	store       StateRepository
	root        string
	downloadNew bool
	recorder    RunRecorder
	observers   []RunObserver
	logger      *log.Logger
}

var _ SyncEngine = (*PlaylistEngine)(nil)

// NewPlaylistEngine creates a new PlaylistEngine. dl may be nil, in which case new tracks are only reported.
func NewPlaylistEngine(service services.Service, dl downloader.Downloader, store StateRepository, opts EngineOpts) *PlaylistEngine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &PlaylistEngine{
		service:     service,
		downloader:  dl,
		store:       store,
		root:        opts.Root,
		downloadNew: opts.DownloadNewTracks,
		recorder:    opts.Recorder,
		observers:   opts.Observers,
		logger:      logger,
	}
}

// Root returns the directory that holds the playlist folders.
func (e *PlaylistEngine) Root() string {
	return e.root
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// finishRun records run and notifies observers. Recording failures are logged.
func (e *PlaylistEngine) finishRun(run *models.SyncRun) {
	if e.recorder != nil {
		if err := e.recorder.Create(run); err != nil {
			e.logger.Error("failed to record run", "kind", run.Kind, "error", err)
		}
	}
	for _, o := range e.observers {
		o.ObserveRun(run)
	}
}
