package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs one update pass and prints what changed.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	dryRun := cmd.Bool("dry-run") || r.config.Sync.DryRun

	if err := r.requireSpotify(); err != nil {
		return err
	}
	if !dryRun {
		if err := r.checkDependencies(ctx); err != nil {
			return err
		}
	}

	opts := tasks.UpdateOpts{PlaylistIDs: cmd.StringSlice("playlist"), DryRun: dryRun}

	var result *tasks.UpdateResult
	var err error
	if cmd.Bool("json") {
		result, err = r.engine.Update(ctx, nil, opts)
	} else {
		progress, stop := r.progressPrinter()
		result, err = r.engine.Update(ctx, progress, opts)
		stop()
	}

	if cmd.Bool("json") && result != nil {
		if werr := r.writeJSON(result.Run, true); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	r.writePlain("\n")
	if dryRun {
		r.writePlainHeader("Dry run: nothing was downloaded, deleted or saved")
		r.printPlannedChanges(result)
	}
	return r.writeBytes(formatter.RunSummary(result.Run))
}

// printPlannedChanges lists the titles a dry run would add and remove per playlist.
func (r *Runner) printPlannedChanges(result *tasks.UpdateResult) {
	for _, p := range result.Playlists {
		if len(p.Added) == 0 && len(p.Removed) == 0 {
			continue
		}
		r.writePlain("%s\n", p.Name)
		for _, title := range sortedTitles(p.Added) {
			r.writePlain("   + %s\n", title)
		}
		for _, title := range sortedTitles(p.Removed) {
			r.writePlain("   - %s\n", title)
		}
	}
	r.writePlain("\n")
}

func sortedTitles(set map[string]string) []string {
	titles := make([]string, 0, len(set))
	for _, title := range set {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}
