package usecase

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/lineup"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/domain/player"
	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/domain/season"
	"github.com/riskibarqy/touchline/internal/domain/team"
)

func newEntity(kind record.Kind) (record.Entity, bool) {
	switch kind {
	case record.KindTeams:
		return &team.Team{}, true
	case record.KindSeasons:
		return &season.Season{}, true
	case record.KindPlayers:
		return &player.Player{}, true
	case record.KindMatches:
		return &match.Match{}, true
	case record.KindMatchPeriods:
		return &period.Period{}, true
	case record.KindMatchStates:
		return &matchstate.State{}, true
	case record.KindEvents:
		return &event.Event{}, true
	case record.KindDefaultLineups:
		return &lineup.DefaultLineup{}, true
	default:
		return nil, false
	}
}

// parentOf reads the indexed foreign key out of a document's payload.
func parentOf(doc record.Document) (string, error) {
	e, ok := newEntity(doc.Kind)
	if !ok {
		return "", fmt.Errorf("unknown record kind %q", doc.Kind)
	}
	if err := sonic.Unmarshal(doc.Payload, e); err != nil {
		return "", fmt.Errorf("decode %s %s: %w", doc.Kind, doc.ID, err)
	}
	return e.ParentRef(), nil
}
