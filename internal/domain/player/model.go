package player

import (
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

// Player belongs to at most one team. CurrentTeamID is a weak reference:
// the team may have been deleted and must be looked up before use.
type Player struct {
	record.Meta
	Name              string     `json:"name" validate:"required,max=80"`
	SquadNumber       *int       `json:"squadNumber,omitempty" validate:"omitempty,min=0,max=99"`
	PreferredPosition Position   `json:"preferredPosition,omitempty" validate:"omitempty,oneof=GK DEF MID FWD"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	CurrentTeamID     string     `json:"currentTeamId,omitempty"`
}

func (Player) Kind() record.Kind { return record.KindPlayers }

func (p Player) ParentRef() string { return p.CurrentTeamID }

func (p Player) Validate() error {
	return record.ValidateStruct(p)
}
