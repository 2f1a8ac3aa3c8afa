package event

import "github.com/riskibarqy/touchline/internal/domain/record"

// Event is one tagged moment of a match. TeamID and PlayerID are weak
// references.
type Event struct {
	record.Meta
	MatchID       string `json:"matchId" validate:"required"`
	Type          Type   `json:"kind" validate:"required"`
	PeriodNumber  int    `json:"periodNumber" validate:"min=0"`
	ClockOffsetMs int64  `json:"clockOffsetMs" validate:"min=0"`
	TeamID        string `json:"teamId,omitempty"`
	PlayerID      string `json:"playerId,omitempty"`
	Sentiment     int    `json:"sentiment" validate:"min=-3,max=3"`
	Notes         string `json:"notes,omitempty" validate:"max=1000"`
}

func (Event) Kind() record.Kind { return record.KindEvents }

func (e Event) ParentRef() string { return e.MatchID }

func (e Event) Validate() error {
	if err := record.ValidateStruct(e); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return record.Invalidf("unknown event kind %q", e.Type)
	}
	if e.Type.IsScoring() && e.TeamID == "" {
		return record.Invalidf("%s requires a team", e.Type)
	}
	return nil
}
