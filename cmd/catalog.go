package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/desertthunder/cadence/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const poolLookupWorkers = 4

// CatalogPool fetches a candidate pool and optionally annotates it with tempos.
func (r *Runner) CatalogPool(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	withTempo := cmd.Bool("tempo")
	required := []string{"catalog"}
	if withTempo {
		required = append(required, "tempo")
	}
	if err := r.requireServices(required...); err != nil {
		return err
	}

	genre := cmd.String("genre")
	criteria := models.NewMatchCriteria(cmd.Int("bpm"), r.tolerance(cmd))
	if err := criteria.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("fetching candidate pool", "genre", genre, "criteria", criteria)
	pool := r.catalog.FetchCandidatePool(ctx, genre, criteria.TargetBPM, criteria.ToleranceBPM)

	rows := formatter.NewTrackRows(pool, nil)

	if withTempo {
		if err := r.annotateTempos(ctx, rows); err != nil {
			return err
		}
		if cmd.Bool("matches") {
			rows = matchingRows(rows, criteria)
		}
	}

	title := fmt.Sprintf("%s at %s", genre, criteria)
	data, err := formatter.RenderTracks(format, title, rows)
	if err != nil {
		return err
	}

	dest, err := formatter.WriteOutput(r.output, cmd.String("output"), data)
	if err != nil {
		return err
	}
	if dest != "stdout" {
		r.writePlain("%s Wrote %d tracks to %s\n", r.palette.OK("✓"), len(rows), dest)
	}
	return nil
}

// annotateTempos looks up every row's tempo. The lookup client paces its own requests,
// so the workers only overlap the slower recording-keyed fallbacks.
func (r *Runner) annotateTempos(ctx context.Context, rows []formatter.TrackRow) error {
	cache := tasks.NewTempoCache()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolLookupWorkers)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.lookup.LookupBPM(gctx, rows[i].Track)
			cache.Record(res)
			rows[i].BPM, rows[i].Source = res.BPM, res.Source
			r.logger.Debug("looked up tempo", "track", rows[i].Track.ID, "bpm", res.Value(), "source", res.Source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("tempo lookups complete", "tracks", len(rows), "cached", cache.Len())
	return nil
}

func matchingRows(rows []formatter.TrackRow, criteria models.MatchCriteria) []formatter.TrackRow {
	var out []formatter.TrackRow
	for _, row := range rows {
		if row.BPM != nil && criteria.Contains(*row.BPM) {
			out = append(out, row)
		}
	}
	return out
}

// CatalogGenres lists the genres the catalog search understands.
func (r *Runner) CatalogGenres(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Genres")
	for _, g := range services.Genres() {
		label := g
		if catalogGenre := services.CatalogGenre(g); catalogGenre != g {
			label = fmt.Sprintf("%s %s", g, r.palette.Help("→ "+catalogGenre))
		}
		r.writePlain("  %s\n", label)
	}
	return nil
}

// TempoLookup resolves one track's tempo through the provider chain.
func (r *Runner) TempoLookup(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireServices("tempo"); err != nil {
		return err
	}

	title := strings.TrimSpace(cmd.String("title"))
	artist := strings.TrimSpace(cmd.String("artist"))
	if title == "" || artist == "" {
		return fmt.Errorf("%w: --title and --artist are required", shared.ErrMissingArgument)
	}

	track := models.Track{ID: cmd.String("id"), Title: title, ArtistName: artist, Artists: []string{artist}}
	res := r.lookup.LookupBPM(ctx, track)

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			TrackID string `json:"track_id,omitempty"`
			Title   string `json:"title"`
			Artist  string `json:"artist"`
			BPM     *int   `json:"bpm"`
			Source  string `json:"source"`
		}{track.ID, title, artist, res.BPM, res.Source.String()}, true)
	}

	if !res.Found() {
		return r.writePlain("%s - %s: %s\n", artist, title, r.palette.Warn("no tempo data"))
	}
	return r.writePlain("%s - %s: %s %s\n", artist, title, r.palette.BPM(res.Value()), r.palette.Help("via "+res.Source.String()))
}
