package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/touchline/internal/domain/lineup"
	"github.com/riskibarqy/touchline/internal/domain/team"
)

type SaveDefaultLineupInput struct {
	TeamID    string
	Formation string
	Slots     []lineup.Slot
}

// SaveDefaultLineup upserts the singleton default lineup of a team. Slot
// players are weak references and are not resolved here.
func SaveDefaultLineup(ctx context.Context, s *DataService, input SaveDefaultLineupInput) (*lineup.DefaultLineup, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SaveDefaultLineup")
	defer span.End()

	input.TeamID = strings.TrimSpace(input.TeamID)
	if input.TeamID == "" {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if _, err := Get[team.Team](ctx, s, input.TeamID); err != nil {
		return nil, err
	}

	existing, err := List[lineup.DefaultLineup](ctx, s, ListFilter{ParentID: input.TeamID})
	if err != nil {
		return nil, err
	}

	slots := append([]lineup.Slot(nil), input.Slots...)
	if len(existing) == 0 {
		return Create(ctx, s, &lineup.DefaultLineup{
			TeamID:    input.TeamID,
			Formation: strings.TrimSpace(input.Formation),
			Slots:     slots,
		})
	}

	return Update[lineup.DefaultLineup](ctx, s, existing[0].ID, func(l *lineup.DefaultLineup) error {
		l.Formation = strings.TrimSpace(input.Formation)
		l.Slots = slots
		return nil
	})
}
