package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// tolerance returns the --tolerance flag, or the configured default when the flag is unset.
func (r *Runner) tolerance(cmd *cli.Command) int {
	if cmd.IsSet("tolerance") {
		return cmd.Int("tolerance")
	}
	return r.config.Session.Tolerance
}

// SessionStart starts tempo-matched playback and advances through matches until interrupted.
func (r *Runner) SessionStart(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireServices("catalog", "tempo", "player"); err != nil {
		return err
	}

	genre := cmd.String("genre")
	bpm := cmd.Int("bpm")
	tolerance := r.tolerance(cmd)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cmd.Duration("for"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	r.writePlainHeader(fmt.Sprintf("%s at %s", genre, models.NewMatchCriteria(bpm, tolerance)))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			r.printProgress(update)
		}
	}()

	coordinator := tasks.NewCoordinator(tasks.CoordinatorOpts{
		Catalog:  r.catalog,
		Lookup:   r.lookup,
		Player:   r.player,
		Fallback: r.fallback,
		Cache:    tasks.NewTempoCache(),
		Recorder: r.sessions,
		Logger:   r.logger,
		Progress: progressCh,
		NewQueue: r.newQueue,
	})

	// EndSession stops the queue, so nothing sends on progressCh once it returns.
	finish := func() error {
		err := coordinator.EndSession(context.WithoutCancel(ctx))
		close(progressCh)
		<-printed
		return err
	}

	result, err := coordinator.StartSession(ctx, genre, bpm, tolerance)
	if err != nil {
		if endErr := finish(); endErr != nil {
			r.logger.Warn("failed to end session", "error", endErr)
		}
		return err
	}

	if result.Outcome != models.OutcomeMatched {
		r.writePlain("\n%s Playing the %s station instead.\n", r.palette.Warn("!"), genre)
		return finish()
	}

	r.writePlain("\n%s Now playing %s - %s (%s), %d tracks seeded for matching\n",
		r.palette.OK("▶"), result.First.ArtistName, result.First.Title, r.palette.BPM(result.FirstBPM), result.Seeded)
	r.writePlain("%s\n\n", r.palette.Help("Press Ctrl+C to end the session."))

	watcher := tasks.NewWatcher(r.player, r.config.Session.PollInterval(), r.logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return coordinator.Listen(gctx, watcher.Events()) })

	waitErr := g.Wait()
	if err := finish(); err != nil {
		r.logger.Warn("failed to end session", "error", err)
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) && !errors.Is(waitErr, context.DeadlineExceeded) {
		return waitErr
	}

	r.printSessionSummary(coordinator.Session())
	return nil
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchPool:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.ScanTempo:
		r.writePlain("   %s\n", update.Message)
	case tasks.StartPlayback:
		r.writePlain("%s %s\n", r.palette.OK("♪"), update.Message)
	case tasks.PlayFallback:
		r.writePlain("%s %s\n", r.palette.Warn("↪"), update.Message)
	case tasks.QueueMatch:
		r.writePlain("   + %s\n", update.Message)
	case tasks.Advance:
		r.writePlain("%s %s\n", r.palette.OK("⏭"), update.Message)
	case tasks.EndSession:
		r.writePlain("\n%s\n", r.palette.Title(update.Message))
	}
}

func (r *Runner) printSessionSummary(s *models.Session) {
	if s == nil {
		return
	}
	r.writePlain("Outcome: %s  Pool: %d  Scanned: %d\n", s.Outcome(), s.PoolSize(), s.Scanned())
}
