package usecase

import (
	"context"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/feed"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/period"
)

// TimelineView is a rendered match feed with the score derived from it.
type TimelineView struct {
	MatchID   string       `json:"match_id"`
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	Entries   []feed.Entry `json:"entries"`
}

type FeedService struct {
	data *DataService
}

func NewFeedService(data *DataService) *FeedService {
	return &FeedService{data: data}
}

// LocalTimeline merges the match's stored events with entries synthesized
// from its periods.
func (s *FeedService) LocalTimeline(ctx context.Context, matchID string) (TimelineView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeedService.LocalTimeline")
	defer span.End()

	m, err := Get[match.Match](ctx, s.data, matchID)
	if err != nil {
		return TimelineView{}, err
	}
	events, err := List[event.Event](ctx, s.data, ListFilter{ParentID: matchID})
	if err != nil {
		return TimelineView{}, err
	}
	periods, err := List[period.Period](ctx, s.data, ListFilter{ParentID: matchID})
	if err != nil {
		return TimelineView{}, err
	}

	timeline := feed.NewTimeline()
	for _, e := range events {
		timeline.Upsert(feed.FromEvent(e))
	}
	for _, p := range periods {
		for _, entry := range feed.PeriodEntries(p) {
			timeline.Upsert(entry)
		}
	}

	home, away := feed.Score(events, m.HomeTeamID, m.AwayTeamID)
	return TimelineView{
		MatchID:   matchID,
		HomeScore: home,
		AwayScore: away,
		Entries:   timeline.Entries(),
	}, nil
}
