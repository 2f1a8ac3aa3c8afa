package team

import "github.com/riskibarqy/touchline/internal/domain/record"

// Team is a squad the owner manages, or a lightweight opponent stub.
type Team struct {
	record.Meta
	Name         string `json:"name" validate:"required,max=80"`
	HomeKitColor string `json:"homeKitColor,omitempty" validate:"omitempty,max=32"`
	AwayKitColor string `json:"awayKitColor,omitempty" validate:"omitempty,max=32"`
	LogoRef      string `json:"logoRef,omitempty"`
	// IsOpponent stubs do not count as owned teams.
	IsOpponent bool `json:"isOpponent"`
}

func (Team) Kind() record.Kind { return record.KindTeams }

func (Team) ParentRef() string { return "" }

func (t Team) Validate() error {
	return record.ValidateStruct(t)
}
