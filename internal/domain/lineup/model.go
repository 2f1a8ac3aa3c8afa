package lineup

import "github.com/riskibarqy/touchline/internal/domain/record"

// Slot places one player on the pitch. X and Y are percentages of pitch
// width and length.
type Slot struct {
	PlayerID string  `json:"playerId" validate:"required"`
	Position string  `json:"position" validate:"required,max=8"`
	X        float64 `json:"x" validate:"min=0,max=100"`
	Y        float64 `json:"y" validate:"min=0,max=100"`
}

// DefaultLineup is the singleton starting formation of a team.
type DefaultLineup struct {
	record.Meta
	TeamID    string `json:"teamId" validate:"required"`
	Formation string `json:"formation,omitempty" validate:"omitempty,max=16"`
	Slots     []Slot `json:"slots" validate:"max=30,dive"`
}

func (DefaultLineup) Kind() record.Kind { return record.KindDefaultLineups }

func (l DefaultLineup) ParentRef() string { return l.TeamID }

func (l DefaultLineup) Validate() error {
	if err := record.ValidateStruct(l); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(l.Slots))
	for _, slot := range l.Slots {
		if _, ok := seen[slot.PlayerID]; ok {
			return record.Invalidf("player %s appears twice in lineup", slot.PlayerID)
		}
		seen[slot.PlayerID] = struct{}{}
	}
	return nil
}
