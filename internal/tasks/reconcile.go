package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/services"
	"golang.org/x/text/unicode/norm"
)

// ReconcileOpts controls a single playlist reconciliation.
type ReconcileOpts struct {
	DryRun bool // Report intended actions without touching the file system
}

// PlaylistSyncResult describes what reconciliation did for one playlist.
type PlaylistSyncResult struct {
	PlaylistID   string
	Name         string
	Folder       string
	Added        models.TrackSet
	Removed      models.TrackSet
	Downloaded   []string // Track IDs fetched successfully
	DeletedFiles []string
	Actions      []models.SyncAction
	Errors       []error // Per-track download and deletion failures
	Err          error   // Set when the playlist could not be fetched; its state was kept
}

// Failed reports whether any part of the playlist's reconciliation failed.
func (r *PlaylistSyncResult) Failed() bool {
	return r.Err != nil || len(r.Errors) > 0
}

// Diff returns the tracks present only in remote (added) and only in previous (removed).
//
// Membership is by track ID. Titles are taken from the side the ID was found on.
func Diff(remote, previous models.TrackSet) (added, removed models.TrackSet) {
	added = make(models.TrackSet)
	removed = make(models.TrackSet)

	for id, title := range remote {
		if _, ok := previous[id]; !ok {
			added[id] = title
		}
	}
	for id, title := range previous {
		if _, ok := remote[id]; !ok {
			removed[id] = title
		}
	}
	return added, removed
}

// Reconcile brings folder in line with remote and returns the mapping to store for playlistID.
//
// Added tracks are downloaded when a downloader is configured and new-track downloads are enabled, otherwise
// they are only reported. For every removed track, each regular file in folder whose name (without extension)
// contains the track title is deleted. Per-track failures are collected on the result and never abort.
// The returned error is non-nil only when ctx is done.
func (e *PlaylistEngine) Reconcile(
	ctx context.Context,
	playlistID string,
	remote, previous models.TrackSet,
	folder string,
	opts ReconcileOpts,
	progress chan<- ProgressUpdate,
) (models.TrackSet, *PlaylistSyncResult, error) {
	added, removed := Diff(remote, previous)
	result := &PlaylistSyncResult{
		PlaylistID: playlistID,
		Folder:     folder,
		Added:      added,
		Removed:    removed,
	}
	logger := e.logger.With("playlist", playlistID)

	addedIDs := added.IDs()
	for i, id := range addedIDs {
		if err := ctx.Err(); err != nil {
			return nil, result, err
		}

		title := added[id]
		url := services.TrackURL(id)
		logger.Info("new song", "title", title, "id", id)
		e.sendProgress(progress, newTrackUpdate(i+1, len(addedIDs), title))

		action := models.SyncAction{PlaylistID: playlistID, TrackID: id, Action: models.ActionDownloadTrack, Target: url}
		if opts.DryRun || e.downloader == nil || !e.downloadNew {
			result.Actions = append(result.Actions, action)
			continue
		}

		if err := e.downloader.Download(ctx, url, folder); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, result, ctxErr
			}
			logger.Error("failed to download track", "title", title, "error", err)
			action.Error = err.Error()
			result.Errors = append(result.Errors, fmt.Errorf("download %s: %w", title, err))
		} else {
			result.Downloaded = append(result.Downloaded, id)
		}
		result.Actions = append(result.Actions, action)
	}

	removedIDs := removed.IDs()
	for i, id := range removedIDs {
		if err := ctx.Err(); err != nil {
			return nil, result, err
		}

		title := removed[id]
		logger.Info("removing old song", "title", title, "id", id)
		e.sendProgress(progress, removeTrackUpdate(i+1, len(removedIDs), title))

		matches, err := matchingFiles(folder, title)
		if err != nil {
			logger.Error("failed to scan playlist folder", "folder", folder, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("scan %s: %w", folder, err))
			continue
		}

		for _, path := range matches {
			action := models.SyncAction{PlaylistID: playlistID, TrackID: id, Action: models.ActionDeleteFile, Target: path}
			e.sendProgress(progress, deleteFileUpdate(i+1, len(removedIDs), path))

			if !opts.DryRun {
				if err := os.Remove(path); err != nil {
					logger.Error("failed to delete file", "path", path, "error", err)
					action.Error = err.Error()
					result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", path, err))
					result.Actions = append(result.Actions, action)
					continue
				}
				logger.Info("deleted file", "path", path)
			}
			result.DeletedFiles = append(result.DeletedFiles, path)
			result.Actions = append(result.Actions, action)
		}
	}

	return remote.Clone(), result, nil
}

// matchingFiles lists the regular files directly inside folder whose base name without extension contains title.
//
// Both sides are compared in Unicode NFC. A missing folder has no matches. A blank title matches nothing.
func matchingFiles(folder, title string) ([]string, error) {
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}
	needle := norm.NFC.String(title)

	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.Contains(norm.NFC.String(stem), needle) {
			matches = append(matches, filepath.Join(folder, name))
		}
	}
	return matches, nil
}
