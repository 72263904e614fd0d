package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// SessionLog records sessions and plays for the playback coordinator.
type SessionLog struct {
	sessions *SessionRepository
	plays    *PlayRepository
}

// NewSessionLog creates a [SessionLog] over db
func NewSessionLog(db *sql.DB) *SessionLog {
	return &SessionLog{sessions: NewSessionRepository(db), plays: NewPlayRepository(db)}
}

// CreateSession persists a new session, assigning its ID and sequence.
func (l *SessionLog) CreateSession(s *models.Session) error {
	return l.sessions.Create(s)
}

// UpdateSession persists the session's outcome, stats and end time.
func (l *SessionLog) UpdateSession(s *models.Session) error {
	return l.sessions.Update(s)
}

// RecordPlay appends a play to an open session.
func (l *SessionLog) RecordPlay(p models.Play) error {
	session, err := l.sessions.Get(p.SessionID)
	if err != nil {
		return err
	}
	if session.EndedAt() != nil {
		return fmt.Errorf("%w: %s", shared.ErrSessionClosed, p.SessionID)
	}

	_, err = l.plays.Create(p)
	return err
}

// History returns the most recent sessions with their plays, newest first.
func (l *SessionLog) History(limit int) ([]models.SessionHistory, error) {
	sessions, err := l.sessions.List(map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}

	history := make([]models.SessionHistory, 0, len(sessions))
	for _, s := range sessions {
		plays, err := l.plays.ListBySession(s.ID())
		if err != nil {
			return nil, err
		}
		history = append(history, models.SessionHistory{Session: s, Plays: plays})
	}
	return history, nil
}
