package usecase

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

// NotifyChanged schedules a debounced sync. It never blocks the writer.
func (s *SyncService) NotifyChanged(kind record.Kind) {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// ConnectivityRestored triggers a sync immediately.
func (s *SyncService) ConnectivityRestored() {
	select {
	case s.online <- struct{}{}:
	default:
	}
}

// Start runs the background loop until Stop or ctx cancellation. Calling
// Start on a running service is a no-op.
func (s *SyncService) Start(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for an in-flight run to return. It is safe
// to call more than once.
func (s *SyncService) Stop() {
	s.loopMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *SyncService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var (
		debounce  clockwork.Timer
		debounceC <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			if debounce == nil {
				debounce = s.clock.NewTimer(s.cfg.Debounce)
			} else {
				debounce.Reset(s.cfg.Debounce)
			}
			debounceC = debounce.Chan()
		case <-debounceC:
			debounceC = nil
			s.trigger(ctx, "change")
		case <-s.online:
			s.trigger(ctx, "connectivity")
		case <-ticker.Chan():
			s.trigger(ctx, "interval")
		}
	}
}

func (s *SyncService) trigger(ctx context.Context, reason string) {
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "sync run failed", "trigger", reason, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "sync run finished", "trigger", reason)
}
