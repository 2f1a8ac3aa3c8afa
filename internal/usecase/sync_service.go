package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

// RemoteAuthority is the server holding the confirmed copy of every record.
// Upsert and Delete are idempotent by kind and id.
type RemoteAuthority interface {
	Upsert(ctx context.Context, doc record.Document) error
	Delete(ctx context.Context, kind record.Kind, id string) error
	// List returns every record of kind visible to the caller.
	List(ctx context.Context, kind record.Kind) ([]record.Document, error)
}

type SyncConfig struct {
	PushWorkers int
	PullWorkers int
	Debounce    time.Duration
	Interval    time.Duration
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PushWorkers: 4,
		PullWorkers: 4,
		Debounce:    2 * time.Second,
		Interval:    5 * time.Minute,
	}
}

func (c SyncConfig) normalize() SyncConfig {
	defaults := DefaultSyncConfig()
	if c.PushWorkers < 1 {
		c.PushWorkers = defaults.PushWorkers
	}
	if c.PullWorkers < 1 {
		c.PullWorkers = defaults.PullWorkers
	}
	if c.Debounce <= 0 {
		c.Debounce = defaults.Debounce
	}
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	return c
}

// SyncStatus is a point-in-time view of the sync engine counters.
type SyncStatus struct {
	Running       bool      `json:"running"`
	LastRunAt     time.Time `json:"last_run_at"`
	LastSuccessAt time.Time `json:"last_success_at"`
	LastError     string    `json:"last_error,omitempty"`
	Pushed        int64     `json:"pushed"`
	Rejected      int64     `json:"rejected"`
	Transient     int64     `json:"transient"`
	Pulled        int64     `json:"pulled"`
	Deferred      int64     `json:"deferred"`
}

// SyncService reconciles the local store with the remote authority. Local
// reads never wait on it.
type SyncService struct {
	store    record.Store
	remote   RemoteAuthority
	identity IdentityResolver
	cfg      SyncConfig
	clock    clockwork.Clock
	logger   *logging.Logger

	runMu sync.Mutex

	pushed    atomic.Int64
	rejected  atomic.Int64
	transient atomic.Int64
	pulled    atomic.Int64
	deferred  atomic.Int64

	statusMu      sync.RWMutex
	running       bool
	lastRunAt     time.Time
	lastSuccessAt time.Time
	lastErr       error

	changed chan struct{}
	online  chan struct{}

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncService(
	store record.Store,
	remote RemoteAuthority,
	identity IdentityResolver,
	cfg SyncConfig,
	clock clockwork.Clock,
	logger *logging.Logger,
) *SyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &SyncService{
		store:    store,
		remote:   remote,
		identity: identity,
		cfg:      cfg.normalize(),
		clock:    clock,
		logger:   logger.Named("sync"),
		changed:  make(chan struct{}, 1),
		online:   make(chan struct{}, 1),
	}
}

// Run pushes then pulls. Concurrent calls are serialized.
func (s *SyncService) Run(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Run")
	defer span.End()

	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.setRunning(true)
	err := s.run(ctx)
	s.finish(err)
	return err
}

func (s *SyncService) run(ctx context.Context) error {
	ident, err := s.identity.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !ident.Authenticated {
		s.logger.DebugContext(ctx, "sync skipped for guest identity", "user_id", ident.UserID)
		return nil
	}

	if err := s.push(ctx); err != nil {
		return err
	}
	return s.pull(ctx)
}

// Push uploads every unsynced row, kinds in dependency order.
func (s *SyncService) Push(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Push")
	defer span.End()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.push(ctx)
}

// Pull downloads the caller's records and applies those whose local copy is
// not pending.
func (s *SyncService) Pull(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Pull")
	defer span.End()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pull(ctx)
}

// Bootstrap runs the initial bulk pull for an authenticated caller whose
// local store is empty.
func (s *SyncService) Bootstrap(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncService.Bootstrap")
	defer span.End()

	ident, err := s.identity.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !ident.Authenticated {
		return nil
	}

	empty, err := s.store.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check local store: %w", err)
	}
	if !empty {
		return nil
	}

	s.logger.InfoContext(ctx, "local store empty, pulling remote state", "user_id", ident.UserID)
	return s.Pull(ctx)
}

func (s *SyncService) push(ctx context.Context) error {
	workers, err := ants.NewPool(s.cfg.PushWorkers)
	if err != nil {
		return fmt.Errorf("create push worker pool: %w", err)
	}
	defer workers.Release()

	for _, kind := range record.SyncOrder {
		if err := s.pushKind(ctx, workers, kind); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) pushKind(ctx context.Context, workers *ants.Pool, kind record.Kind) error {
	docs, err := s.store.ListUnsynced(ctx, kind)
	if err != nil {
		return fmt.Errorf("list unsynced %s: %w", kind, err)
	}
	if len(docs) == 0 {
		return nil
	}

	var (
		wg        sync.WaitGroup
		transient atomic.Int32
	)
	for _, doc := range docs {
		wg.Add(1)
		if err := workers.Submit(func() {
			defer wg.Done()
			if !s.pushOne(ctx, doc) {
				transient.Add(1)
			}
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submit push task: %w", err)
		}
	}
	wg.Wait()

	if n := transient.Load(); n > 0 {
		// Later kinds reference these rows; retry everything next trigger.
		return fmt.Errorf("%w: %d %s rows not pushed", ErrTransientNetwork, n, kind)
	}
	return nil
}

// pushOne reports false only for transient failures.
func (s *SyncService) pushOne(ctx context.Context, doc record.Document) bool {
	var err error
	if doc.IsDeleted {
		err = s.remote.Delete(ctx, doc.Kind, doc.ID)
	} else {
		err = s.remote.Upsert(ctx, doc)
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrRemoteRejected):
		s.rejected.Add(1)
		s.logger.ErrorContext(ctx, "remote rejected record",
			"kind", doc.Kind,
			"id", doc.ID,
			"error", err,
		)
		return true
	default:
		s.transient.Add(1)
		s.logger.WarnContext(ctx, "push failed, will retry",
			"kind", doc.Kind,
			"id", doc.ID,
			"error", err,
		)
		return false
	}

	marked, err := s.store.MarkSynced(ctx, doc.Kind, doc.ID, doc.UpdatedAt, s.clock.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "mark synced failed", "kind", doc.Kind, "id", doc.ID, "error", err)
		return true
	}
	if !marked {
		s.logger.DebugContext(ctx, "record changed during push, left pending", "kind", doc.Kind, "id", doc.ID)
		return true
	}
	s.pushed.Add(1)
	return true
}

type pulledKind struct {
	kind record.Kind
	docs []record.Document
}

func (s *SyncService) pull(ctx context.Context) error {
	p := pool.NewWithResults[pulledKind]().
		WithErrors().
		WithContext(ctx).
		WithMaxGoroutines(s.cfg.PullWorkers)

	for _, kind := range record.SyncOrder {
		p.Go(func(ctx context.Context) (pulledKind, error) {
			docs, err := s.remote.List(ctx, kind)
			if err != nil {
				return pulledKind{}, fmt.Errorf("pull %s: %w", kind, err)
			}
			return pulledKind{kind: kind, docs: docs}, nil
		})
	}
	results, fetchErr := p.Wait()

	order := make(map[record.Kind]int, len(record.SyncOrder))
	for i, kind := range record.SyncOrder {
		order[kind] = i
	}
	sort.Slice(results, func(i, j int) bool {
		return order[results[i].kind] < order[results[j].kind]
	})

	for _, res := range results {
		if err := s.apply(ctx, res); err != nil {
			return err
		}
	}

	if fetchErr != nil {
		s.logger.WarnContext(ctx, "pull incomplete, will retry", "error", fetchErr)
		return fetchErr
	}
	return nil
}

func (s *SyncService) apply(ctx context.Context, res pulledKind) error {
	for _, doc := range res.docs {
		doc.Kind = res.kind
		if parent, err := parentOf(doc); err == nil {
			doc.ParentID = parent
		} else {
			s.logger.WarnContext(ctx, "keeping listed parent of pulled record",
				"kind", doc.Kind,
				"id", doc.ID,
				"error", err,
			)
		}
		applied, err := s.store.ApplyRemote(ctx, doc)
		if err != nil {
			return fmt.Errorf("apply remote %s %s: %w", doc.Kind, doc.ID, err)
		}
		if !applied {
			s.deferred.Add(1)
			s.logger.DebugContext(ctx, "kept local edit",
				"kind", doc.Kind,
				"id", doc.ID,
				"reason", ErrSyncConflictDeferred,
			)
			continue
		}
		s.pulled.Add(1)
	}
	return nil
}

func (s *SyncService) Status() SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	status := SyncStatus{
		Running:       s.running,
		LastRunAt:     s.lastRunAt,
		LastSuccessAt: s.lastSuccessAt,
		Pushed:        s.pushed.Load(),
		Rejected:      s.rejected.Load(),
		Transient:     s.transient.Load(),
		Pulled:        s.pulled.Load(),
		Deferred:      s.deferred.Load(),
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

func (s *SyncService) setRunning(running bool) {
	s.statusMu.Lock()
	s.running = running
	s.statusMu.Unlock()
}

func (s *SyncService) finish(err error) {
	now := s.clock.Now().UTC()

	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.running = false
	s.lastRunAt = now
	s.lastErr = err
	if err == nil {
		s.lastSuccessAt = now
	}
}
