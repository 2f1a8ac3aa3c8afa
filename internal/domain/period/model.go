package period

import (
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

type Type string

const (
	TypeRegular         Type = "REGULAR"
	TypeExtraTime       Type = "EXTRA_TIME"
	TypePenaltyShootout Type = "PENALTY_SHOOTOUT"
)

// Period is one stretch of play. At most one period per match is open
// (EndedAt unset) at any time.
type Period struct {
	record.Meta
	MatchID         string     `json:"matchId" validate:"required"`
	PeriodNumber    int        `json:"periodNumber" validate:"min=1"`
	Type            Type       `json:"periodType" validate:"required,oneof=REGULAR EXTRA_TIME PENALTY_SHOOTOUT"`
	StartedAt       time.Time  `json:"startedAt" validate:"required"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
}

func (Period) Kind() record.Kind { return record.KindMatchPeriods }

func (p Period) ParentRef() string { return p.MatchID }

func (p Period) Validate() error {
	if err := record.ValidateStruct(p); err != nil {
		return err
	}
	if p.EndedAt != nil && p.EndedAt.Before(p.StartedAt) {
		return record.Invalidf("period %d ends before it starts", p.PeriodNumber)
	}
	return nil
}

func (p Period) Open() bool {
	return p.EndedAt == nil
}

// Close stamps the end instant and the actual wall-clock length.
func (p *Period) Close(at time.Time) {
	if !p.Open() {
		return
	}
	if at.Before(p.StartedAt) {
		at = p.StartedAt
	}
	secs := int64(at.Sub(p.StartedAt).Round(time.Second) / time.Second)
	p.EndedAt = &at
	p.DurationSeconds = &secs
}

// FindOpen returns the open, non-deleted period among ps.
func FindOpen(ps []Period) (Period, bool) {
	for _, p := range ps {
		if !p.IsDeleted && p.Open() {
			return p, true
		}
	}
	return Period{}, false
}

// NextNumber is the count of live periods of type t plus one.
func NextNumber(ps []Period, t Type) int {
	n := 1
	for _, p := range ps {
		if !p.IsDeleted && p.Type == t {
			n++
		}
	}
	return n
}
