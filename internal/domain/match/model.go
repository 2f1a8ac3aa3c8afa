package match

import (
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

// PeriodFormat splits regulation time into equal periods.
type PeriodFormat string

const (
	FormatHalf    PeriodFormat = "half"
	FormatQuarter PeriodFormat = "quarter"
	FormatWhole   PeriodFormat = "whole"
)

type Match struct {
	record.Meta
	SeasonID   string     `json:"seasonId" validate:"required"`
	KickoffAt  *time.Time `json:"kickoffAt,omitempty"`
	HomeTeamID string     `json:"homeTeamId" validate:"required"`
	AwayTeamID string     `json:"awayTeamId" validate:"required,nefield=HomeTeamID"`
	// DurationMinutes is total regulation time; zero means the format default.
	DurationMinutes int          `json:"durationMinutes,omitempty" validate:"min=0,max=240"`
	PeriodFormat    PeriodFormat `json:"periodFormat" validate:"required,oneof=half quarter whole"`
	HomeScore       int          `json:"homeScore" validate:"min=0"`
	AwayScore       int          `json:"awayScore" validate:"min=0"`
	Venue           string       `json:"venue,omitempty"`
	Competition     string       `json:"competition,omitempty"`
	Notes           string       `json:"notes,omitempty"`
}

func (Match) Kind() record.Kind { return record.KindMatches }

func (m Match) ParentRef() string { return m.SeasonID }

func (m Match) Validate() error {
	return record.ValidateStruct(m)
}
