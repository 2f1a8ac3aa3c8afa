package matchstate

import (
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusLive       Status = "LIVE"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
)

// State is the single clock row of a match. TimerMs is the match-time
// baseline captured at LastUpdatedAt.
type State struct {
	record.Meta
	MatchID       string    `json:"matchId" validate:"required"`
	Status        Status    `json:"status" validate:"required,oneof=NOT_STARTED LIVE PAUSED COMPLETED"`
	OpenPeriodID  string    `json:"currentPeriodId,omitempty"`
	TimerMs       int64     `json:"timerMs" validate:"min=0"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

func (State) Kind() record.Kind { return record.KindMatchStates }

func (s State) ParentRef() string { return s.MatchID }

func (s State) Validate() error {
	if err := record.ValidateStruct(s); err != nil {
		return err
	}
	if s.Status == StatusLive && s.OpenPeriodID == "" {
		return record.Invalidf("live match %s has no open period", s.MatchID)
	}
	if s.Status == StatusCompleted && s.OpenPeriodID != "" {
		return record.Invalidf("completed match %s still has an open period", s.MatchID)
	}
	return nil
}

// IDFor is the state row id of a match. One row exists per match.
func IDFor(matchID string) string {
	return matchID
}

// New is the state of a match nobody has kicked off yet.
func New(matchID string) State {
	return State{
		Meta:    record.Meta{ID: IDFor(matchID)},
		MatchID: matchID,
		Status:  StatusNotStarted,
	}
}

// Elapsed reconstructs match time from stored state alone.
func (s State) Elapsed(now time.Time) time.Duration {
	base := time.Duration(s.TimerMs) * time.Millisecond
	if s.Status != StatusLive || s.LastUpdatedAt.IsZero() {
		return base
	}
	if delta := now.Sub(s.LastUpdatedAt); delta > 0 {
		return base + delta
	}
	return base
}

// SetTimer rebases the stored timer at the given instant.
func (s *State) SetTimer(d time.Duration, at time.Time) {
	if d < 0 {
		d = 0
	}
	s.TimerMs = d.Milliseconds()
	s.LastUpdatedAt = at
}

var transitions = map[Status]map[Status]bool{
	StatusNotStarted: {StatusLive: true, StatusCompleted: true},
	StatusLive:       {StatusPaused: true, StatusCompleted: true},
	StatusPaused:     {StatusLive: true, StatusCompleted: true},
}

func CanTransition(from, to Status) bool {
	return transitions[from][to]
}
