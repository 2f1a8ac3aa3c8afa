package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/touchline/internal/platform/logging"
)

// ViewerManager owns the single live viewer session of this device. Opening
// a new one closes the previous subscription.
type ViewerManager struct {
	stream PushStream
	opts   ViewerOptions
	logger *logging.Logger

	mu      sync.Mutex
	current *ViewerSession
}

func NewViewerManager(stream PushStream, opts ViewerOptions) *ViewerManager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &ViewerManager{
		stream: stream,
		opts:   opts,
		logger: logger.Named("viewer"),
	}
}

// Open subscribes to matchID with a share token. The session outlives ctx's
// cancellation; it ends on Close, on expiry, or when another session opens.
func (m *ViewerManager) Open(ctx context.Context, matchID, token string) (*ViewerSession, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ViewerManager.Open")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	token = strings.TrimSpace(token)
	if matchID == "" || token == "" {
		return nil, fmt.Errorf("%w: match id and share token are required", ErrInvalidInput)
	}
	if m.stream == nil {
		return nil, fmt.Errorf("%w: live stream is not configured", ErrDependencyUnavailable)
	}

	opts := m.opts
	userExpired := opts.Hooks.OnExpired
	opts.Hooks.OnExpired = func(err error) {
		m.logger.ErrorContext(ctx, "live stream expired", "match_id", matchID, "error", err)
		if userExpired != nil {
			userExpired(err)
		}
	}

	next := NewViewerSession(m.stream, matchID, token, opts)

	m.mu.Lock()
	prev := m.current
	m.current = next
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	next.Start(context.WithoutCancel(ctx))

	m.logger.InfoContext(ctx, "viewer session opened", "match_id", matchID)
	return next, nil
}

func (m *ViewerManager) Current() (*ViewerSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// Close ends the active session, if any.
func (m *ViewerManager) Close() {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.mu.Unlock()

	if cur != nil {
		cur.Close()
	}
}
