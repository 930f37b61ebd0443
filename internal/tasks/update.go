package tasks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// UpdateOpts selects what an update pass covers.
type UpdateOpts struct {
	PlaylistIDs []string // Limit the pass to these playlists; empty means all
	DryRun      bool     // Compute and report actions without touching disk or state
}

// UpdateResult contains the outcome of one update pass.
type UpdateResult struct {
	Run       *models.SyncRun
	Playlists []*PlaylistSyncResult
	DryRun    bool
}

// Update runs one reconciliation pass.
//
// Every selected playlist gets a folder under the engine root named after it, its tracks are fetched and
// reconciled against the stored snapshot, and the snapshot is saved once at the end. An authentication
// failure aborts the pass without saving. Any other failure fetching a playlist keeps its previous state.
func (e *PlaylistEngine) Update(ctx context.Context, progress chan<- ProgressUpdate, opts UpdateOpts) (*UpdateResult, error) {
	run := &models.SyncRun{
		ID:        shared.GenerateID(),
		Kind:      models.RunKindUpdate,
		StartedAt: time.Now(),
	}
	result := &UpdateResult{Run: run, DryRun: opts.DryRun}
	logger := e.logger.With("run_id", run.ID)

	fail := func(err error) (*UpdateResult, error) {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		run.FinishedAt = time.Now()
		e.finishRun(run)
		return result, err
	}

	if e.service == nil {
		return fail(fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable))
	}
	if e.store == nil {
		return fail(fmt.Errorf("%w: state store not initialized", shared.ErrServiceUnavailable))
	}

	e.sendProgress(progress, fetchPlaylistsUpdate())
	playlists, err := e.service.GetPlaylists(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to get playlists: %w", err))
	}
	if len(playlists) == 0 {
		logger.Warn("no playlists found")
		return fail(shared.ErrNoPlaylists)
	}
	e.sendProgress(progress, foundPlaylistsUpdate(len(playlists)))

	playlists, err = selectPlaylists(playlists, opts.PlaylistIDs)
	if err != nil {
		return fail(err)
	}

	e.sendProgress(progress, loadStateUpdate())
	state, err := e.store.Load()
	if err != nil {
		return fail(err)
	}

	if !opts.DryRun {
		if err := os.MkdirAll(e.root, 0755); err != nil {
			return fail(fmt.Errorf("failed to create playlists directory: %w", err))
		}
	}

	var passErr error
	for i, playlist := range playlists {
		if err := ctx.Err(); err != nil {
			passErr = err
			break
		}

		e.sendProgress(progress, reconcilePlaylistUpdate(i+1, len(playlists), playlist))
		res, tracks, err := e.updatePlaylist(ctx, playlist, state.Get(playlist.ID), opts, progress)
		if err != nil {
			if shared.IsAuthError(err) {
				logger.Error("authentication failed, aborting pass", "playlist", playlist.Name, "error", err)
				return fail(err)
			}
			passErr = err
			break
		}

		result.Playlists = append(result.Playlists, res)
		if res.Err != nil {
			e.sendProgress(progress, reconcileFailedUpdate(i+1, len(playlists), playlist.Name, res.Err))
			continue
		}

		state.Put(playlist.ID, tracks)
		e.sendProgress(progress, reconcileDoneUpdate(i+1, len(playlists), res))
	}

	summarize(run, result.Playlists)

	if !opts.DryRun && len(result.Playlists) > 0 {
		if err := e.store.Save(state); err != nil {
			return fail(fmt.Errorf("failed to save state: %w", err))
		}
		e.sendProgress(progress, saveStateUpdate(len(state)))
	}

	if passErr != nil {
		return fail(passErr)
	}

	switch {
	case opts.DryRun:
		run.Status = models.RunStatusDryRun
	case run.Failures > 0:
		run.Status = models.RunStatusPartial
	default:
		run.Status = models.RunStatusSucceeded
	}
	run.FinishedAt = time.Now()
	logger.Info("update pass finished",
		"status", run.Status, "playlists", run.Playlists,
		"added", run.Added, "removed", run.Removed, "deleted_files", run.DeletedFiles,
		"duration", run.Duration())
	e.finishRun(run)
	return result, nil
}

// updatePlaylist fetches and reconciles a single playlist.
//
// A fetch failure other than authentication or cancellation is stored on the result and returned as nil error.
func (e *PlaylistEngine) updatePlaylist(
	ctx context.Context,
	playlist models.Playlist,
	previous models.TrackSet,
	opts UpdateOpts,
	progress chan<- ProgressUpdate,
) (*PlaylistSyncResult, models.TrackSet, error) {
	res := &PlaylistSyncResult{PlaylistID: playlist.ID, Name: playlist.Name}
	folder, err := shared.PlaylistFolder(e.root, playlist.Name)
	if err != nil {
		e.logger.Error("refusing playlist folder", "playlist", playlist.Name, "error", err)
		res.Err = err
		return res, nil, nil
	}
	res.Folder = folder

	if !opts.DryRun {
		if err := os.MkdirAll(folder, 0755); err != nil {
			res.Err = fmt.Errorf("failed to create playlist folder: %w", err)
			return res, nil, nil
		}
	}

	export, err := e.service.ExportPlaylist(ctx, playlist.ID)
	if err != nil {
		if shared.IsAuthError(err) {
			return res, nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, nil, ctxErr
		}
		e.logger.Error("failed to fetch playlist tracks", "playlist", playlist.Name, "error", err)
		res.Err = err
		res.Actions = []models.SyncAction{{
			PlaylistID: playlist.ID,
			Action:     models.ActionFetchFailed,
			Error:      err.Error(),
		}}
		return res, nil, nil
	}

	tracks, rec, err := e.Reconcile(ctx, playlist.ID, export.TrackSet(), previous, folder, ReconcileOpts{DryRun: opts.DryRun}, progress)
	rec.Name = playlist.Name
	if err != nil {
		return rec, nil, err
	}
	return rec, tracks, nil
}

// selectPlaylists keeps the playlists whose IDs are in ids, preserving the service's order.
func selectPlaylists(playlists []models.Playlist, ids []string) ([]models.Playlist, error) {
	if len(ids) == 0 {
		return playlists, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	selected := make([]models.Playlist, 0, len(ids))
	for _, p := range playlists {
		if wanted[p.ID] {
			selected = append(selected, p)
			delete(wanted, p.ID)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for id := range wanted {
			missing = append(missing, id)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrPlaylistNotFound, missing)
	}
	return selected, nil
}

// summarize folds per-playlist results into run totals.
func summarize(run *models.SyncRun, results []*PlaylistSyncResult) {
	run.Playlists = len(results)
	for _, r := range results {
		run.Added += len(r.Added)
		run.Removed += len(r.Removed)
		run.DeletedFiles += len(r.DeletedFiles)
		if r.Err != nil {
			run.Failures++
		}
		run.Failures += len(r.Errors)
		run.Actions = append(run.Actions, r.Actions...)
	}
}
