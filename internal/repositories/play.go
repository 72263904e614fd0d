package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/models"
)

// PlayRepository stores the play commands issued during sessions.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new [PlayRepository] with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create appends a play and returns its row id
func (r *PlayRepository) Create(play models.Play) (int64, error) {
	if play.SessionID == "" || play.TrackID == "" {
		return 0, fmt.Errorf("validation failed: play requires a session and a track")
	}
	if play.PlayedAt.IsZero() {
		play.PlayedAt = time.Now()
	}

	query := `
		INSERT INTO plays (session_id, track_id, title, artist, bpm, origin, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		play.SessionID, play.TrackID, play.Title, play.Artist, nullInt(play.BPM), string(play.Origin), play.PlayedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}
	return result.LastInsertId()
}

// ListBySession returns a session's plays in the order they were issued
func (r *PlayRepository) ListBySession(sessionID string) ([]models.Play, error) {
	query := `
		SELECT session_id, track_id, title, artist, bpm, origin, played_at
		FROM plays
		WHERE session_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []models.Play
	for rows.Next() {
		var (
			p      models.Play
			bpm    sql.NullInt64
			origin string
		)
		if err := rows.Scan(&p.SessionID, &p.TrackID, &p.Title, &p.Artist, &bpm, &origin, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		if bpm.Valid {
			v := int(bpm.Int64)
			p.BPM = &v
		}
		p.Origin = models.PlayOrigin(origin)
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return plays, nil
}

// CountBySession returns how many plays a session issued
func (r *PlayRepository) CountBySession(sessionID string) (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM plays WHERE session_id = ?", sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return n, nil
}
