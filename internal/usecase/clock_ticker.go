package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
)

const DefaultTickInterval = time.Second

// ClockTicker reports a live match clock at a fixed interval. Elapsed time
// advances by in-process monotonic deltas from the snapshot it started with,
// so wall-clock changes do not move it.
type ClockTicker struct {
	clock    clockwork.Clock
	interval time.Duration
	base     ClockSnapshot
	started  time.Time
	onTick   func(ClockSnapshot)

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func newClockTicker(clock clockwork.Clock, interval time.Duration, base ClockSnapshot, onTick func(ClockSnapshot)) *ClockTicker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &ClockTicker{
		clock:    clock,
		interval: interval,
		base:     base,
		onTick:   onTick,
		done:     make(chan struct{}),
	}
}

func (t *ClockTicker) start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.started = t.clock.Now()
	go t.run(ctx)
}

func (t *ClockTicker) run(ctx context.Context) {
	defer close(t.done)

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			select {
			case <-ctx.Done():
				return
			default:
			}
			t.onTick(t.current())
		}
	}
}

func (t *ClockTicker) current() ClockSnapshot {
	delta := t.clock.Since(t.started)
	snap := t.base
	snap.Elapsed = t.base.Elapsed + delta
	snap.ElapsedMs = snap.Elapsed.Milliseconds()
	snap.Display = period.FormatClock(snap.Elapsed)
	snap.TakenAt = t.base.TakenAt.Add(delta)
	if snap.ExpectedEndMs > 0 {
		stoppage := period.Stoppage(snap.Elapsed, time.Duration(snap.ExpectedEndMs)*time.Millisecond)
		snap.StoppageMs = stoppage.Milliseconds()
		snap.StoppageDisplay = period.FormatStoppage(stoppage)
	}
	return snap
}

// Stop halts ticking and waits for the callback goroutine to exit. Calling it
// again is a no-op.
func (t *ClockTicker) Stop() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		<-t.done
	})
}

func (t *ClockTicker) Done() <-chan struct{} {
	return t.done
}

// Watch starts a ticker for a live match. Pause, EndPeriod and Complete stop
// every ticker of the match; callers watch again after the next kickoff.
func (s *ClockService) Watch(ctx context.Context, matchID string, clock clockwork.Clock, interval time.Duration, onTick func(ClockSnapshot)) (*ClockTicker, error) {
	if onTick == nil {
		return nil, fmt.Errorf("%w: tick callback is required", ErrInvalidInput)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.Snapshot(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if snap.Status != matchstate.StatusLive {
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidTransition, matchID, snap.Status)
	}

	t := newClockTicker(clock, interval, snap, onTick)
	if s.tickers[matchID] == nil {
		s.tickers[matchID] = make(map[*ClockTicker]struct{})
	}
	s.tickers[matchID][t] = struct{}{}
	t.start(ctx)

	go func() {
		<-t.done
		s.mu.Lock()
		delete(s.tickers[matchID], t)
		if len(s.tickers[matchID]) == 0 {
			delete(s.tickers, matchID)
		}
		s.mu.Unlock()
	}()
	return t, nil
}

func (s *ClockService) stopTickersLocked(matchID string) {
	for t := range s.tickers[matchID] {
		t.cancel()
	}
}
