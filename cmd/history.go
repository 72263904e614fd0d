package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints recent sessions, newest first, with the tracks each one played.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireServices("sessions"); err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	history, err := r.sessions.History(limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(history) == 0 && format == formatter.FormatText {
		return r.writePlain("%s\n", r.palette.Help("No sessions yet. Start one with `cadence session start`."))
	}

	data, err := formatter.RenderHistory(format, history)
	if err != nil {
		return err
	}

	dest, err := formatter.WriteOutput(r.output, cmd.String("output"), data)
	if err != nil {
		return err
	}
	if dest != "stdout" {
		r.writePlain("%s Wrote %d sessions to %s\n", r.palette.OK("✓"), len(history), dest)
	}
	return nil
}
