package models

import (
	"fmt"
	"time"
)

// SessionOutcome describes how a session's startup resolved.
type SessionOutcome string

const (
	OutcomePending  SessionOutcome = "pending"
	OutcomeMatched  SessionOutcome = "matched"
	OutcomeFallback SessionOutcome = "fallback"
	OutcomeFailed   SessionOutcome = "failed"
)

// PlayOrigin identifies which pipeline stage issued a play command.
type PlayOrigin string

const (
	OriginBootstrap PlayOrigin = "bootstrap"
	OriginQueue     PlayOrigin = "queue"
	OriginFallback  PlayOrigin = "fallback"
)

// Session is one "start workout" run of the pipeline.
type Session struct {
	id           string
	sequence     int
	genre        string
	targetBPM    int
	toleranceBPM int
	outcome      SessionOutcome
	firstTrackID string
	poolSize     int
	scanned      int
	startedAt    time.Time
	endedAt      *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSession creates a pending session for the given genre and tempo window.
func NewSession(genre string, criteria MatchCriteria) *Session {
	now := time.Now()
	return &Session{
		genre:        genre,
		targetBPM:    criteria.TargetBPM,
		toleranceBPM: criteria.ToleranceBPM,
		outcome:      OutcomePending,
		startedAt:    now,
		createdAt:    now,
		updatedAt:    now,
	}
}

// RestoreSession rebuilds a session from persisted columns.
func RestoreSession(
	id string, sequence int, genre string, target, tolerance int, outcome SessionOutcome,
	firstTrackID string, poolSize, scanned int,
	startedAt time.Time, endedAt *time.Time, createdAt, updatedAt time.Time, deletedAt *time.Time,
) *Session {
	return &Session{
		id: id, sequence: sequence, genre: genre, targetBPM: target, toleranceBPM: tolerance,
		outcome: outcome, firstTrackID: firstTrackID, poolSize: poolSize, scanned: scanned,
		startedAt: startedAt, endedAt: endedAt, createdAt: createdAt, updatedAt: updatedAt, deletedAt: deletedAt,
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Sequence() int           { return s.sequence }
func (s *Session) Genre() string           { return s.genre }
func (s *Session) TargetBPM() int          { return s.targetBPM }
func (s *Session) ToleranceBPM() int       { return s.toleranceBPM }
func (s *Session) Outcome() SessionOutcome { return s.outcome }
func (s *Session) FirstTrackID() string    { return s.firstTrackID }
func (s *Session) PoolSize() int           { return s.poolSize }
func (s *Session) Scanned() int            { return s.scanned }
func (s *Session) StartedAt() time.Time    { return s.startedAt }
func (s *Session) EndedAt() *time.Time     { return s.endedAt }
func (s *Session) CreatedAt() time.Time    { return s.createdAt }
func (s *Session) UpdatedAt() time.Time    { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time   { return s.deletedAt }

func (s *Session) SetID(id string)                { s.id = id }
func (s *Session) SetSequence(seq int)            { s.sequence = seq }
func (s *Session) SetUpdatedAt(t time.Time)       { s.updatedAt = t }
func (s *Session) SetOutcome(o SessionOutcome)    { s.outcome = o }
func (s *Session) SetFirstTrackID(id string)      { s.firstTrackID = id }
func (s *Session) SetPoolStats(pool, scanned int) { s.poolSize, s.scanned = pool, scanned }

// End stamps the session end time.
func (s *Session) End(at time.Time) {
	s.endedAt = &at
}

// Criteria returns the session's tempo window.
func (s *Session) Criteria() MatchCriteria {
	return MatchCriteria{TargetBPM: s.targetBPM, ToleranceBPM: s.toleranceBPM}
}

// Validate checks required fields.
func (s *Session) Validate() error {
	if err := s.Criteria().Validate(); err != nil {
		return err
	}
	switch s.outcome {
	case OutcomePending, OutcomeMatched, OutcomeFallback, OutcomeFailed:
	default:
		return fmt.Errorf("unknown session outcome %q", s.outcome)
	}
	return nil
}

// Play records one play command issued during a session.
type Play struct {
	SessionID string
	TrackID   string
	Title     string
	Artist    string
	BPM       *int
	Origin    PlayOrigin
	PlayedAt  time.Time
}

// SessionHistory is a session together with the plays it issued.
type SessionHistory struct {
	Session *Session
	Plays   []Play
}
