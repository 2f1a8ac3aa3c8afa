package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/feed"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

func TestFeedService_LocalTimelineMergesPeriodsAndEvents(t *testing.T) {
	env := newTestEnv(t, authenticatedUser(), nil)
	m := seedMatch(t, env, 60, match.FormatHalf)
	clock := NewClockService(env.data, logging.NewNop())
	ctx := t.Context()

	first, err := clock.Kickoff(ctx, m.ID, period.TypeRegular)
	require.NoError(t, err)
	env.clock.Advance(5 * time.Minute)

	goal, err := Create(ctx, env.data, &event.Event{MatchID: m.ID, Type: event.TypeGoal, TeamID: m.HomeTeamID, PeriodNumber: 1, ClockOffsetMs: 300_000})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	disallowed, err := Create(ctx, env.data, &event.Event{MatchID: m.ID, Type: event.TypeGoal, TeamID: m.AwayTeamID, PeriodNumber: 1})
	require.NoError(t, err)
	require.NoError(t, Delete[event.Event](ctx, env.data, disallowed.ID))
	env.clock.Advance(time.Minute)
	ownGoal, err := Create(ctx, env.data, &event.Event{MatchID: m.ID, Type: event.TypeOwnGoal, TeamID: m.HomeTeamID, PeriodNumber: 1})
	require.NoError(t, err)

	env.clock.Advance(25 * time.Minute)
	_, err = clock.EndPeriod(ctx, m.ID)
	require.NoError(t, err)

	view, err := NewFeedService(env.data).LocalTimeline(ctx, m.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, view.HomeScore)
	assert.Equal(t, 1, view.AwayScore, "own goal credits the other side")

	ids := make([]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{
		feed.PeriodEndID(first.OpenPeriod.ID),
		ownGoal.ID,
		goal.ID,
		feed.PeriodStartID(first.OpenPeriod.ID),
	}, ids, "newest first, deleted events dropped")
}

func TestFeedService_UnknownMatch(t *testing.T) {
	env := newTestEnv(t, authenticatedUser(), nil)

	_, err := NewFeedService(env.data).LocalTimeline(t.Context(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}
