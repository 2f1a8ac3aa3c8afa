package feed

import (
	"strconv"

	"github.com/riskibarqy/touchline/internal/domain/event"
)

// Score derives the result from events. A goal counts for its team, an own
// goal for the other side. Deleted events are ignored.
func Score(events []event.Event, homeTeamID, awayTeamID string) (home, away int) {
	for _, e := range events {
		if e.IsDeleted {
			continue
		}
		h, a := credit(e.Type, e.TeamID, homeTeamID, awayTeamID)
		home += h
		away += a
	}
	return home, away
}

func credit(kind event.Type, teamID, homeTeamID, awayTeamID string) (home, away int) {
	var scorer string
	switch kind {
	case event.TypeGoal:
		scorer = teamID
	case event.TypeOwnGoal:
		switch teamID {
		case homeTeamID:
			scorer = awayTeamID
		case awayTeamID:
			scorer = homeTeamID
		}
	default:
		return 0, 0
	}

	switch {
	case scorer == "":
		return 0, 0
	case scorer == homeTeamID:
		return 1, 0
	case scorer == awayTeamID:
		return 0, 1
	}
	return 0, 0
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
