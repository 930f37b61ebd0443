package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/formatter"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded runs, or one run in detail with --id.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.runs == nil {
		return fmt.Errorf("%w: run history database is not available, try `spotsync setup database`", shared.ErrServiceUnavailable)
	}

	if age := cmd.Duration("prune"); age > 0 {
		n, err := r.runs.Prune(time.Now().Add(-age))
		if err != nil {
			return err
		}
		r.logger.Info("pruned run history", "runs", n, "older_than", age)
	}

	if id := cmd.String("id"); id != "" {
		run, err := r.runs.Get(id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(run, true)
		}
		return r.writeBytes(formatter.RunSummary(run))
	}

	kind := cmd.String("kind")
	switch kind {
	case "", models.RunKindUpdate, models.RunKindDownload:
	default:
		return fmt.Errorf("%w: unknown run kind %q", shared.ErrInvalidArgument, kind)
	}

	runs, err := r.runs.List(kind, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	return r.writeBytes(formatter.RunsToText(runs))
}
