package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

const sessionColumns = `
	id, sequence, genre, target_bpm, tolerance_bpm, outcome, first_track_id,
	pool_size, scanned, started_at, ended_at, created_at, updated_at, deleted_at
`

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session with a generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Exec(query,
		id,
		sequence,
		session.Genre(),
		session.TargetBPM(),
		session.ToleranceBPM(),
		string(session.Outcome()),
		nullString(session.FirstTrackID()),
		session.PoolSize(),
		session.Scanned(),
		session.StartedAt(),
		nullTime(session.EndedAt()),
		session.CreatedAt(),
		session.UpdatedAt(),
		nullTime(session.DeletedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	session.SetID(id)
	session.SetSequence(sequence)
	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// Update writes the session's mutable columns
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sessions
		SET outcome = ?, first_track_id = ?, pool_size = ?, scanned = ?, ended_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(session.Outcome()),
		nullString(session.FirstTrackID()),
		session.PoolSize(),
		session.Scanned(),
		nullTime(session.EndedAt()),
		session.UpdatedAt(),
		session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return expectRow(result, session.ID())
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	query := `UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves sessions matching the given criteria, newest first.
//
// Supported criteria: "genre" (string), "outcome" (string or [models.SessionOutcome]) and "limit" (int).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if genre, ok := criteria["genre"].(string); ok && genre != "" {
		query += " AND genre = ?"
		args = append(args, genre)
	}

	switch outcome := criteria["outcome"].(type) {
	case string:
		if outcome != "" {
			query += " AND outcome = ?"
			args = append(args, outcome)
		}
	case models.SessionOutcome:
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id, genre, outcome   string
		firstTrackID         sql.NullString
		sequence             int
		target, tolerance    int
		poolSize, scanned    int
		startedAt            time.Time
		createdAt, updatedAt time.Time
		endedAt, deletedAt   sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &genre, &target, &tolerance, &outcome, &firstTrackID,
		&poolSize, &scanned, &startedAt, &endedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	return models.RestoreSession(
		id, sequence, genre, target, tolerance, models.SessionOutcome(outcome),
		firstTrackID.String, poolSize, scanned,
		startedAt, timePtr(endedAt), createdAt, updatedAt, timePtr(deletedAt),
	), nil
}
