package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Download bulk-downloads the selected playlists, or all of them with --all.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("playlist")
	all := cmd.Bool("all")

	if len(ids) == 0 && !all {
		return fmt.Errorf("%w: pass --playlist <id> or --all", shared.ErrNoSelection)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to get playlists: %w", err)
	}
	if len(playlists) == 0 {
		return shared.ErrNoPlaylists
	}
	if !all {
		if playlists, err = pickPlaylists(playlists, ids); err != nil {
			return err
		}
	}

	opts := tasks.BulkDownloadOpts{
		OutputDir:  shared.ExpandHome(cmd.String("output")),
		NumWorkers: r.config.Sync.Workers,
		RateLimit:  r.config.Sync.RateLimit,
	}
	if workers := cmd.Int("workers"); workers > 0 {
		opts.NumWorkers = workers
	}

	r.writePlain("Downloading %d playlists...\n", len(playlists))
	progress, stop := r.progressPrinter()
	result, err := r.engine.BulkDownload(ctx, progress, playlists, opts)
	stop()
	if err != nil && result == nil {
		return fmt.Errorf("download failed: %w", err)
	}

	r.writePlainln("✓ %d downloaded, %d failed, %d skipped", result.SuccessfulDownloads, result.FailedDownloads, result.Skipped)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return err
}

// pickPlaylists keeps the playlists whose IDs were requested, in request order.
func pickPlaylists(playlists []models.Playlist, ids []string) ([]models.Playlist, error) {
	byID := make(map[string]models.Playlist, len(playlists))
	for _, p := range playlists {
		byID[p.ID] = p
	}

	picked := make([]models.Playlist, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
		picked = append(picked, p)
	}
	return picked, nil
}
