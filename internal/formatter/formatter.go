// package formatter renders candidate pools, tempo lookups and session history as text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// Format is an output encoding selected with --format.
type Format string

const (
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat maps a flag value to a [Format]. Empty input selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use txt, csv, json or md)", shared.ErrInvalidArgument, s)
	}
}

// TrackRow is a track with its looked-up tempo, if any.
type TrackRow struct {
	Track  models.Track
	BPM    *int
	Source models.TempoSource
}

// NewTrackRows pairs tracks with tempos from a cache snapshot. Tracks missing from bpms get no tempo.
func NewTrackRows(tracks []models.Track, bpms map[string]*int) []TrackRow {
	rows := make([]TrackRow, len(tracks))
	for i, t := range tracks {
		rows[i] = TrackRow{Track: t, BPM: bpms[t.ID]}
	}
	return rows
}

func bpmString(bpm *int) string {
	if bpm == nil {
		return ""
	}
	return strconv.Itoa(*bpm)
}

func bpmLabel(bpm *int) string {
	if bpm == nil {
		return "? bpm"
	}
	return fmt.Sprintf("%d bpm", *bpm)
}

// TracksToCSV converts rows to CSV with columns: ID, Title, Artist, Album, URI, BPM, Source
func TracksToCSV(rows []TrackRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "URI", "BPM", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows {
		source := ""
		if row.BPM != nil {
			source = row.Source.String()
		}
		record := []string{
			row.Track.ID,
			row.Track.Title,
			row.Track.ArtistName,
			row.Track.AlbumName,
			row.Track.PlayableURI,
			bpmString(row.BPM),
			source,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToText renders a numbered list headed by title
func TracksToText(title string, rows []TrackRow) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(rows))

	for i, row := range rows {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, row.Track.ArtistName, row.Track.Title, bpmLabel(row.BPM))
	}

	return buf.Bytes()
}

// TracksToMarkdown renders rows as a Markdown table
func TracksToMarkdown(title string, rows []TrackRow) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(rows))
	buf.WriteString("| # | Artist | Title | Album | BPM |\n")
	buf.WriteString("|---|--------|-------|-------|-----|\n")

	for i, row := range rows {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			i+1, mdCell(row.Track.ArtistName), mdCell(row.Track.Title), mdCell(row.Track.AlbumName), bpmString(row.BPM))
	}

	return buf.Bytes()
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

type trackJSON struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Artists []string `json:"artists,omitempty"`
	Album   string   `json:"album,omitempty"`
	URI     string   `json:"uri"`
	BPM     *int     `json:"bpm"`
	Source  string   `json:"source,omitempty"`
}

// TracksToJSON encodes rows as an indented JSON array
func TracksToJSON(rows []TrackRow) ([]byte, error) {
	out := make([]trackJSON, len(rows))
	for i, row := range rows {
		out[i] = trackJSON{
			ID:      row.Track.ID,
			Title:   row.Track.Title,
			Artist:  row.Track.ArtistName,
			Artists: row.Track.Artists,
			Album:   row.Track.AlbumName,
			URI:     row.Track.PlayableURI,
			BPM:     row.BPM,
		}
		if row.BPM != nil {
			out[i].Source = row.Source.String()
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// RenderTracks encodes rows in the requested format
func RenderTracks(format Format, title string, rows []TrackRow) ([]byte, error) {
	switch format {
	case FormatCSV:
		return TracksToCSV(rows)
	case FormatJSON:
		return TracksToJSON(rows)
	case FormatMarkdown:
		return TracksToMarkdown(title, rows), nil
	default:
		return TracksToText(title, rows), nil
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(time.DateTime)
}

// HistoryToText renders each session followed by its plays
func HistoryToText(history []models.SessionHistory) []byte {
	var buf bytes.Buffer

	for i, h := range history {
		s := h.Session
		if i > 0 {
			buf.WriteString("\n")
		}
		started := s.StartedAt()
		fmt.Fprintf(&buf, "Session #%d: %s at %s [%s]\n", s.Sequence(), s.Genre(), s.Criteria(), s.Outcome())
		fmt.Fprintf(&buf, "Started: %s", formatTime(&started))
		if s.EndedAt() != nil {
			fmt.Fprintf(&buf, "  Ended: %s", formatTime(s.EndedAt()))
		}
		fmt.Fprintf(&buf, "\nPool: %d  Scanned: %d  Plays: %d\n", s.PoolSize(), s.Scanned(), len(h.Plays))

		for j, p := range h.Plays {
			fmt.Fprintf(&buf, "  %d. %s - %s [%s] (%s)\n", j+1, p.Artist, p.Title, bpmLabel(p.BPM), p.Origin)
		}
	}

	return buf.Bytes()
}

// HistoryToCSV writes one row per play with its session's columns repeated
func HistoryToCSV(history []models.SessionHistory) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Session", "Genre", "Target", "Tolerance", "Outcome", "TrackID", "Title", "Artist", "BPM", "Origin", "PlayedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, h := range history {
		s := h.Session
		for _, p := range h.Plays {
			record := []string{
				strconv.Itoa(s.Sequence()),
				s.Genre(),
				strconv.Itoa(s.TargetBPM()),
				strconv.Itoa(s.ToleranceBPM()),
				string(s.Outcome()),
				p.TrackID,
				p.Title,
				p.Artist,
				bpmString(p.BPM),
				string(p.Origin),
				p.PlayedAt.UTC().Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders one section per session
func HistoryToMarkdown(history []models.SessionHistory) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Session History\n\n")
	for _, h := range history {
		s := h.Session
		fmt.Fprintf(&buf, "## Session #%d: %s\n\n", s.Sequence(), s.Genre())
		fmt.Fprintf(&buf, "**Tempo**: %s\n", s.Criteria())
		fmt.Fprintf(&buf, "**Outcome**: %s\n", s.Outcome())
		fmt.Fprintf(&buf, "**Pool**: %d (scanned %d)\n\n", s.PoolSize(), s.Scanned())

		for i, p := range h.Plays {
			fmt.Fprintf(&buf, "%d. %s - %s [%s] _%s_\n", i+1, p.Artist, p.Title, bpmLabel(p.BPM), p.Origin)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

type playJSON struct {
	TrackID  string    `json:"track_id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	BPM      *int      `json:"bpm"`
	Origin   string    `json:"origin"`
	PlayedAt time.Time `json:"played_at"`
}

type sessionJSON struct {
	ID           string     `json:"id"`
	Sequence     int        `json:"sequence"`
	Genre        string     `json:"genre"`
	TargetBPM    int        `json:"target_bpm"`
	ToleranceBPM int        `json:"tolerance_bpm"`
	Outcome      string     `json:"outcome"`
	FirstTrackID string     `json:"first_track_id,omitempty"`
	PoolSize     int        `json:"pool_size"`
	Scanned      int        `json:"scanned"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Plays        []playJSON `json:"plays"`
}

// HistoryToJSON encodes sessions and plays as an indented JSON array
func HistoryToJSON(history []models.SessionHistory) ([]byte, error) {
	out := make([]sessionJSON, len(history))
	for i, h := range history {
		s := h.Session
		plays := make([]playJSON, len(h.Plays))
		for j, p := range h.Plays {
			plays[j] = playJSON{p.TrackID, p.Title, p.Artist, p.BPM, string(p.Origin), p.PlayedAt}
		}
		out[i] = sessionJSON{
			ID:           s.ID(),
			Sequence:     s.Sequence(),
			Genre:        s.Genre(),
			TargetBPM:    s.TargetBPM(),
			ToleranceBPM: s.ToleranceBPM(),
			Outcome:      string(s.Outcome()),
			FirstTrackID: s.FirstTrackID(),
			PoolSize:     s.PoolSize(),
			Scanned:      s.Scanned(),
			StartedAt:    s.StartedAt(),
			EndedAt:      s.EndedAt(),
			Plays:        plays,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// RenderHistory encodes history in the requested format
func RenderHistory(format Format, history []models.SessionHistory) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(history)
	case FormatJSON:
		return HistoryToJSON(history)
	case FormatMarkdown:
		return HistoryToMarkdown(history), nil
	default:
		return HistoryToText(history), nil
	}
}

// WriteOutput writes data to path, or to w when path is empty. It returns where the data went.
func WriteOutput(w io.Writer, path string, data []byte) (string, error) {
	if path == "" {
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("failed to write output: %w", err)
		}
		return "stdout", nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
