package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

// ClockSnapshot is the derived clock of one match at an instant.
type ClockSnapshot struct {
	MatchID         string            `json:"match_id"`
	Status          matchstate.Status `json:"status"`
	Elapsed         time.Duration     `json:"-"`
	ElapsedMs       int64             `json:"elapsed_ms"`
	Display         string            `json:"display"`
	ExpectedEndMs   int64             `json:"expected_end_ms,omitempty"`
	StoppageMs      int64             `json:"stoppage_ms"`
	StoppageDisplay string            `json:"stoppage_display,omitempty"`
	OpenPeriod      *period.Period    `json:"open_period,omitempty"`
	// TakenAt is the instant Elapsed was derived for.
	TakenAt time.Time `json:"taken_at"`
}

// ClockService drives the match state machine. Every transition writes
// through the data service so periods and state rows sync like any record.
type ClockService struct {
	data   *DataService
	logger *logging.Logger

	// serializes transitions per process
	mu      sync.Mutex
	tickers map[string]map[*ClockTicker]struct{}
}

func NewClockService(data *DataService, logger *logging.Logger) *ClockService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClockService{
		data:    data,
		logger:  logger.Named("clock"),
		tickers: make(map[string]map[*ClockTicker]struct{}),
	}
}

type clockView struct {
	match   *match.Match
	state   matchstate.State
	exists  bool
	periods []period.Period
	open    *period.Period
}

func (s *ClockService) load(ctx context.Context, matchID string) (clockView, error) {
	m, err := Get[match.Match](ctx, s.data, matchID)
	if err != nil {
		return clockView{}, err
	}

	view := clockView{match: m, state: matchstate.New(matchID)}
	st, ok, err := Find[matchstate.State](ctx, s.data, matchstate.IDFor(matchID))
	if err != nil {
		return clockView{}, err
	}
	if ok {
		view.state = *st
		view.exists = true
	}

	view.periods, err = List[period.Period](ctx, s.data, ListFilter{ParentID: matchID})
	if err != nil {
		return clockView{}, err
	}
	if open, ok := period.FindOpen(view.periods); ok {
		view.open = &open
	}
	return view, nil
}

func (s *ClockService) saveState(ctx context.Context, view clockView, next matchstate.State) error {
	if !view.exists {
		_, err := Create(ctx, s.data, &next)
		return err
	}
	_, err := Update[matchstate.State](ctx, s.data, next.ID, func(st *matchstate.State) error {
		*st = next
		return nil
	})
	return err
}

// Kickoff opens the next period of type pt and starts the timer at the
// period's expected start offset. Kicking off while a period is open and
// paused resumes it; while live it is a no-op.
func (s *ClockService) Kickoff(ctx context.Context, matchID string, pt period.Type) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.Kickoff")
	defer span.End()

	if pt == "" {
		pt = period.TypeRegular
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	if view.state.Status == matchstate.StatusCompleted {
		return ClockSnapshot{}, fmt.Errorf("%w: match %s is completed", ErrInvalidTransition, matchID)
	}
	if view.open != nil {
		if view.state.Status == matchstate.StatusPaused {
			return s.resumeLocked(ctx, view)
		}
		return s.snapshot(view, s.data.now()), nil
	}

	now := s.data.now().UTC()
	timing := period.TimingOf(*view.match)
	n := period.NextNumber(view.periods, pt)

	baseline := timing.ExpectedStart(pt, n)
	if pt == period.TypePenaltyShootout {
		baseline = view.state.Elapsed(now)
	}

	opened, err := Create(ctx, s.data, &period.Period{
		MatchID:      matchID,
		PeriodNumber: n,
		Type:         pt,
		StartedAt:    now,
	})
	if err != nil {
		return ClockSnapshot{}, err
	}

	next := view.state
	next.Status = matchstate.StatusLive
	next.OpenPeriodID = opened.ID
	next.SetTimer(baseline, now)
	if err := s.saveState(ctx, view, next); err != nil {
		return ClockSnapshot{}, err
	}

	s.logger.InfoContext(ctx, "period started",
		"match_id", matchID,
		"period_type", pt,
		"period_number", n,
		"baseline_ms", baseline.Milliseconds(),
	)

	view.state, view.exists, view.open = next, true, opened
	return s.snapshot(view, now), nil
}

// EndPeriod closes the open period and snaps the timer to its expected end.
// Without an open period it is a no-op.
func (s *ClockService) EndPeriod(ctx context.Context, matchID string) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.EndPeriod")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	now := s.data.now().UTC()
	if view.open == nil {
		return s.snapshot(view, now), nil
	}

	s.stopTickersLocked(matchID)

	actual := view.state.Elapsed(now)
	closed, err := s.closePeriod(ctx, view.open.ID, now)
	if err != nil {
		return ClockSnapshot{}, err
	}

	timing := period.TimingOf(*view.match)
	end := timing.ExpectedEnd(closed.Type, closed.PeriodNumber)
	if closed.Type == period.TypePenaltyShootout {
		end = actual
	}

	next := view.state
	next.Status = matchstate.StatusPaused
	next.OpenPeriodID = ""
	next.SetTimer(end, now)
	if err := s.saveState(ctx, view, next); err != nil {
		return ClockSnapshot{}, err
	}

	s.logger.InfoContext(ctx, "period ended",
		"match_id", matchID,
		"period_number", closed.PeriodNumber,
		"duration_seconds", *closed.DurationSeconds,
		"stoppage", period.FormatStoppage(period.Stoppage(actual, end)),
	)

	view.state, view.exists, view.open = next, true, nil
	return s.snapshot(view, now), nil
}

// Pause freezes the running timer without closing the period. Pausing a
// match that is not live is a no-op.
func (s *ClockService) Pause(ctx context.Context, matchID string) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.Pause")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	now := s.data.now().UTC()
	if view.state.Status != matchstate.StatusLive {
		return s.snapshot(view, now), nil
	}

	s.stopTickersLocked(matchID)

	next := view.state
	next.Status = matchstate.StatusPaused
	next.SetTimer(view.state.Elapsed(now), now)
	if err := s.saveState(ctx, view, next); err != nil {
		return ClockSnapshot{}, err
	}

	view.state = next
	return s.snapshot(view, now), nil
}

// Resume restarts the timer of a paused, still open period.
func (s *ClockService) Resume(ctx context.Context, matchID string) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.Resume")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	switch {
	case view.state.Status == matchstate.StatusLive:
		return s.snapshot(view, s.data.now()), nil
	case view.state.Status != matchstate.StatusPaused || view.open == nil:
		return ClockSnapshot{}, fmt.Errorf("%w: match %s has no paused period, kick off the next one", ErrInvalidTransition, matchID)
	}
	return s.resumeLocked(ctx, view)
}

func (s *ClockService) resumeLocked(ctx context.Context, view clockView) (ClockSnapshot, error) {
	now := s.data.now().UTC()

	next := view.state
	next.Status = matchstate.StatusLive
	next.OpenPeriodID = view.open.ID
	next.LastUpdatedAt = now
	if err := s.saveState(ctx, view, next); err != nil {
		return ClockSnapshot{}, err
	}

	view.state = next
	return s.snapshot(view, now), nil
}

// Complete closes any open period and freezes the timer for good.
func (s *ClockService) Complete(ctx context.Context, matchID string) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.Complete")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	now := s.data.now().UTC()
	if view.state.Status == matchstate.StatusCompleted {
		return s.snapshot(view, now), nil
	}

	s.stopTickersLocked(matchID)

	if view.open != nil {
		if _, err := s.closePeriod(ctx, view.open.ID, now); err != nil {
			return ClockSnapshot{}, err
		}
	}

	next := view.state
	next.Status = matchstate.StatusCompleted
	next.OpenPeriodID = ""
	next.SetTimer(view.state.Elapsed(now), now)
	if err := s.saveState(ctx, view, next); err != nil {
		return ClockSnapshot{}, err
	}

	s.logger.InfoContext(ctx, "match completed", "match_id", view.match.ID, "timer_ms", next.TimerMs)

	view.state, view.exists, view.open = next, true, nil
	return s.snapshot(view, now), nil
}

// Snapshot reconstructs the clock from stored state alone.
func (s *ClockService) Snapshot(ctx context.Context, matchID string) (ClockSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ClockService.Snapshot")
	defer span.End()

	view, err := s.load(ctx, matchID)
	if err != nil {
		return ClockSnapshot{}, err
	}
	return s.snapshot(view, s.data.now()), nil
}

func (s *ClockService) closePeriod(ctx context.Context, periodID string, at time.Time) (*period.Period, error) {
	return Update[period.Period](ctx, s.data, periodID, func(p *period.Period) error {
		p.Close(at)
		return nil
	})
}

func (s *ClockService) snapshot(view clockView, now time.Time) ClockSnapshot {
	elapsed := view.state.Elapsed(now)
	snap := ClockSnapshot{
		MatchID:   view.state.MatchID,
		Status:    view.state.Status,
		Elapsed:   elapsed,
		ElapsedMs: elapsed.Milliseconds(),
		Display:   period.FormatClock(elapsed),
		TakenAt:   now.UTC(),
	}
	if view.open == nil || view.match == nil {
		return snap
	}

	open := *view.open
	snap.OpenPeriod = &open
	if open.Type == period.TypePenaltyShootout {
		return snap
	}

	end := period.TimingOf(*view.match).ExpectedEnd(open.Type, open.PeriodNumber)
	stoppage := period.Stoppage(elapsed, end)
	snap.ExpectedEndMs = end.Milliseconds()
	snap.StoppageMs = stoppage.Milliseconds()
	snap.StoppageDisplay = period.FormatStoppage(stoppage)
	return snap
}
