package usecase

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/season"
	"github.com/riskibarqy/touchline/internal/domain/team"
	"github.com/riskibarqy/touchline/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

type staticIDGenerator struct {
	id string
}

func (g staticIDGenerator) NewID() (string, error) {
	return g.id, nil
}

// sequenceIDGenerator mints prefix-1, prefix-2, ...
type sequenceIDGenerator struct {
	prefix string
	n      atomic.Int64
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1)), nil
}

var testEpoch = time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store *memory.RecordStore
	data  *DataService
	clock *clockwork.FakeClock
}

func newTestEnv(t *testing.T, ident Identity, limits *LimitService) *testEnv {
	t.Helper()

	store := memory.NewRecordStore()
	clock := clockwork.NewFakeClockAt(testEpoch)
	data := NewDataService(store, StaticIdentity(ident), limits, &sequenceIDGenerator{prefix: "rec"}, logging.NewNop())
	data.now = clock.Now

	return &testEnv{store: store, data: data, clock: clock}
}

func authenticatedUser() Identity {
	return Identity{UserID: "user-1", Authenticated: true, Token: "token-1"}
}

func guestUser() Identity {
	return Identity{UserID: "guest-1"}
}

// seedMatch creates a season, two teams and a match between them.
func seedMatch(t *testing.T, env *testEnv, minutes int, format match.PeriodFormat) *match.Match {
	t.Helper()
	ctx := t.Context()

	s, err := Create(ctx, env.data, &season.Season{Label: "Autumn 2026"})
	if err != nil {
		t.Fatalf("create season: %v", err)
	}
	home, err := Create(ctx, env.data, &team.Team{Name: "Riverside U12"})
	if err != nil {
		t.Fatalf("create home team: %v", err)
	}
	away, err := Create(ctx, env.data, &team.Team{Name: "Hillcrest", IsOpponent: true})
	if err != nil {
		t.Fatalf("create away team: %v", err)
	}
	m, err := Create(ctx, env.data, &match.Match{
		SeasonID:        s.ID,
		HomeTeamID:      home.ID,
		AwayTeamID:      away.ID,
		DurationMinutes: minutes,
		PeriodFormat:    format,
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}
