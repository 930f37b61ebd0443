package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/library"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/urfave/cli/v3"
)

// Status compares the stored snapshot with the audio files in each playlist folder.
//
// Playlist names come from Spotify when it is reachable; otherwise the stored IDs are used.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	state, err := r.store.Load()
	if err != nil {
		return err
	}

	playlists := r.statusPlaylists(ctx, state)
	rows, err := library.Coverage(ctx, r.config.Paths.Playlists, playlists, state)
	if err != nil {
		return fmt.Errorf("failed to scan playlist folders: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	if err := r.writeBytes(formatter.CoverageToText(rows)); err != nil {
		return err
	}
	return r.writeLastUpdate()
}

// writeLastUpdate prints the most recent recorded update pass, when history is available.
func (r *Runner) writeLastUpdate() error {
	if r.runs == nil {
		return nil
	}
	run, err := r.runs.Latest(models.RunKindUpdate)
	if err != nil {
		r.logger.Warn("failed to read run history", "error", err)
		return nil
	}
	if run == nil {
		return r.writePlain("Last update: never\n")
	}
	return r.writePlain("Last update: #%d %s at %s\n", run.Sequence, run.Status, run.FinishedAt.Format(time.DateTime))
}

// statusPlaylists lists the playlists present in state, named from the remote service when possible.
func (r *Runner) statusPlaylists(ctx context.Context, state models.PlaylistState) []models.Playlist {
	names := make(map[string]string, len(state))
	if r.spotify != nil {
		remote, err := r.spotify.GetPlaylists(ctx)
		if err != nil {
			r.logger.Warn("could not fetch playlist names, using IDs", "error", err)
		}
		for _, p := range remote {
			names[p.ID] = p.Name
		}
	}

	playlists := make([]models.Playlist, 0, len(state))
	for id := range state {
		name, ok := names[id]
		if !ok {
			name = id
		}
		playlists = append(playlists, models.Playlist{ID: id, Name: name})
	}
	sort.Slice(playlists, func(i, j int) bool { return playlists[i].Name < playlists[j].Name })
	return playlists
}
