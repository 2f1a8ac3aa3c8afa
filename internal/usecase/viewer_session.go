package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/riskibarqy/touchline/internal/domain/event"
	"github.com/riskibarqy/touchline/internal/domain/feed"
	"github.com/riskibarqy/touchline/internal/domain/match"
	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/domain/period"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
)

type StreamMessageType string

const (
	StreamSnapshot      StreamMessageType = "snapshot"
	StreamEventCreated  StreamMessageType = "event_created"
	StreamEventDeleted  StreamMessageType = "event_deleted"
	StreamPeriodStarted StreamMessageType = "period_started"
	StreamPeriodEnded   StreamMessageType = "period_ended"
	StreamStateChanged  StreamMessageType = "state_changed"
)

// StreamSnapshotPayload is the full match state a stream sends right after
// connect.
type StreamSnapshotPayload struct {
	Match   *match.Match      `json:"match,omitempty"`
	State   *matchstate.State `json:"state,omitempty"`
	Periods []period.Period   `json:"periods"`
	Events  []event.Event     `json:"events"`
}

// StreamMessage is one decoded push frame. Only the field matching Type is set.
type StreamMessage struct {
	Type     StreamMessageType
	Snapshot *StreamSnapshotPayload
	Event    *event.Event
	EventID  string
	Period   *period.Period
	State    *matchstate.State
}

type StreamConn interface {
	// Next blocks for the next frame. It returns an error once the
	// connection is gone.
	Next(ctx context.Context) (StreamMessage, error)
	Close() error
}

// PushStream is the viewer-side live feed of a match.
type PushStream interface {
	Connect(ctx context.Context, matchID, token string) (StreamConn, error)
	// CheckToken reports whether the share credential is still valid.
	CheckToken(ctx context.Context, matchID, token string) (bool, error)
}

// ViewerView is what a read-only viewer renders.
type ViewerView struct {
	MatchID   string            `json:"match_id"`
	Match     *match.Match      `json:"match,omitempty"`
	State     *matchstate.State `json:"state,omitempty"`
	HomeScore int               `json:"home_score"`
	AwayScore int               `json:"away_score"`
	Entries   []feed.Entry      `json:"entries"`
	Connected bool              `json:"connected"`
}

type ViewerHooks struct {
	OnChange func(ViewerView)
	// OnExpired is called at most once, with ErrStreamExpired.
	OnExpired func(error)
}

// ViewerSession keeps one push-stream subscription per viewing session and
// folds its messages into a deduplicated timeline.
type ViewerSession struct {
	stream  PushStream
	matchID string
	token   string
	backoff resilience.Backoff
	clock   clockwork.Clock
	hooks   ViewerHooks
	logger  *logging.Logger

	mu        sync.Mutex
	timeline  *feed.Timeline
	deleted   map[string]struct{}
	match     *match.Match
	state     *matchstate.State
	conn      StreamConn
	connected bool
	err       error

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type ViewerOptions struct {
	Backoff resilience.Backoff
	Clock   clockwork.Clock
	Hooks   ViewerHooks
	Logger  *logging.Logger
}

func NewViewerSession(stream PushStream, matchID, token string, opts ViewerOptions) *ViewerSession {
	if opts.Backoff.Initial <= 0 {
		opts.Backoff = resilience.DefaultBackoff()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &ViewerSession{
		stream:   stream,
		matchID:  matchID,
		token:    token,
		backoff:  opts.Backoff,
		clock:    opts.Clock,
		hooks:    opts.Hooks,
		logger:   opts.Logger.Named("viewer").With("match_id", matchID),
		timeline: feed.NewTimeline(),
		deleted:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Start connects in the background. Later calls are no-ops.
func (v *ViewerSession) Start(ctx context.Context) {
	v.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		v.mu.Lock()
		v.cancel = cancel
		v.mu.Unlock()
		go v.run(ctx)
	})
}

// Close drops the subscription and stops reconnecting. It is idempotent and
// waits for the background loop when one was started.
func (v *ViewerSession) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		cancel, conn := v.cancel, v.conn
		v.mu.Unlock()

		if cancel == nil {
			v.startOnce.Do(func() { close(v.done) })
			return
		}
		cancel()
		if conn != nil {
			_ = conn.Close()
		}
		<-v.done
	})
}

// Done is closed when the session stops for good.
func (v *ViewerSession) Done() <-chan struct{} {
	return v.done
}

// Err is ErrStreamExpired after expiry, nil otherwise.
func (v *ViewerSession) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *ViewerSession) View() ViewerView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewLocked()
}

func (v *ViewerSession) run(ctx context.Context) {
	defer close(v.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		received, err := v.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if received {
			attempt = 0
		}

		valid, checkErr := v.stream.CheckToken(ctx, v.matchID, v.token)
		switch {
		case checkErr == nil && !valid:
			v.expire()
			return
		case checkErr != nil && ctx.Err() == nil:
			v.logger.WarnContext(ctx, "token check failed", "error", checkErr)
		}

		delay := v.backoff.Delay(attempt)
		attempt++
		v.logger.InfoContext(ctx, "stream disconnected, reconnecting",
			"error", err,
			"attempt", attempt,
			"delay", delay,
		)

		timer := v.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

// session holds one connection until it drops. It reports whether any frame
// arrived.
func (v *ViewerSession) session(ctx context.Context) (bool, error) {
	conn, err := v.stream.Connect(ctx, v.matchID, v.token)
	if err != nil {
		return false, err
	}

	v.mu.Lock()
	if ctx.Err() != nil {
		v.mu.Unlock()
		_ = conn.Close()
		return false, ctx.Err()
	}
	v.conn = conn
	v.connected = true
	v.mu.Unlock()

	defer func() {
		_ = conn.Close()
		v.mu.Lock()
		v.conn = nil
		v.connected = false
		view := v.viewLocked()
		v.mu.Unlock()
		v.notify(view)
	}()

	received := false
	for {
		msg, err := conn.Next(ctx)
		if err != nil {
			return received, err
		}
		received = true
		v.Apply(msg)
	}
}

// Apply folds one message into the timeline. Duplicates and out-of-order
// delivery converge to the same view. A snapshot replaces the timeline;
// incrementals land on top of it. Deleted event ids stay tombstoned until
// the next snapshot so a late create cannot bring them back.
func (v *ViewerSession) Apply(msg StreamMessage) {
	v.mu.Lock()
	switch msg.Type {
	case StreamSnapshot:
		if snap := msg.Snapshot; snap != nil {
			if snap.Match != nil {
				v.match = snap.Match
			}
			if snap.State != nil {
				v.state = snap.State
			}
			v.timeline = feed.NewTimeline()
			clear(v.deleted)
			for _, p := range snap.Periods {
				v.upsertPeriodLocked(p)
			}
			for _, e := range snap.Events {
				v.upsertEventLocked(e)
			}
		}
	case StreamEventCreated:
		if msg.Event != nil {
			v.upsertEventLocked(*msg.Event)
		}
	case StreamEventDeleted:
		id := msg.EventID
		if id == "" && msg.Event != nil {
			id = msg.Event.ID
		}
		v.removeEventLocked(id)
	case StreamPeriodStarted, StreamPeriodEnded:
		if msg.Period != nil {
			v.upsertPeriodLocked(*msg.Period)
		}
	case StreamStateChanged:
		if msg.State != nil {
			v.state = msg.State
		}
	default:
		v.mu.Unlock()
		v.logger.Debug("ignoring unknown stream message", "type", msg.Type)
		return
	}
	view := v.viewLocked()
	v.mu.Unlock()

	v.notify(view)
}

func (v *ViewerSession) upsertEventLocked(e event.Event) {
	if e.IsDeleted {
		v.removeEventLocked(e.ID)
		return
	}
	if _, gone := v.deleted[e.ID]; gone {
		return
	}
	v.timeline.Upsert(feed.FromEvent(e))
}

func (v *ViewerSession) removeEventLocked(id string) {
	if id == "" {
		return
	}
	v.deleted[id] = struct{}{}
	v.timeline.Remove(id)
}

func (v *ViewerSession) upsertPeriodLocked(p period.Period) {
	for _, entry := range feed.PeriodEntries(p) {
		v.timeline.Upsert(entry)
	}
}

func (v *ViewerSession) viewLocked() ViewerView {
	view := ViewerView{
		MatchID:   v.matchID,
		Match:     v.match,
		State:     v.state,
		Entries:   v.timeline.Entries(),
		Connected: v.connected,
	}
	if v.match != nil {
		view.HomeScore, view.AwayScore = v.timeline.Score(v.match.HomeTeamID, v.match.AwayTeamID)
	}
	return view
}

func (v *ViewerSession) notify(view ViewerView) {
	if v.hooks.OnChange != nil {
		v.hooks.OnChange(view)
	}
}

func (v *ViewerSession) expire() {
	v.mu.Lock()
	already := v.err != nil
	v.err = ErrStreamExpired
	v.mu.Unlock()
	if already {
		return
	}

	v.logger.Error("viewer credential expired, stopped reconnecting", "error", ErrStreamExpired)
	if v.hooks.OnExpired != nil {
		v.hooks.OnExpired(ErrStreamExpired)
	}
}

// IsStreamExpired reports whether err means the share credential is gone.
func IsStreamExpired(err error) bool {
	return errors.Is(err, ErrStreamExpired)
}
