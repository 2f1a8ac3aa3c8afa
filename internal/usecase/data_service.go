package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
	idgen "github.com/riskibarqy/touchline/internal/platform/id"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

// ChangeNotifier receives a signal after every successful local write. It
// must not block.
type ChangeNotifier interface {
	NotifyChanged(kind record.Kind)
}

type nopNotifier struct{}

func (nopNotifier) NotifyChanged(record.Kind) {}

// DataService is the only sanctioned way to mutate entities. The generic
// Create, Update, Delete, Get, Find and List functions operate through it.
type DataService struct {
	store    record.Store
	identity IdentityResolver
	quota    *QuotaGuard
	idGen    idgen.Generator
	notifier ChangeNotifier
	logger   *logging.Logger
	now      func() time.Time
}

func NewDataService(
	store record.Store,
	identity IdentityResolver,
	limits *LimitService,
	idGen idgen.Generator,
	logger *logging.Logger,
) *DataService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewRandomGenerator()
	}

	return &DataService{
		store:    store,
		identity: identity,
		quota:    NewQuotaGuard(store, limits),
		idGen:    idGen,
		notifier: nopNotifier{},
		logger:   logger.Named("data"),
		now:      time.Now,
	}
}

// SetNotifier wires the change signal, normally the sync engine.
func (s *DataService) SetNotifier(n ChangeNotifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

func (s *DataService) Store() record.Store {
	return s.store
}

func (s *DataService) Identity(ctx context.Context) (Identity, error) {
	ident, err := s.identity.Resolve(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	if strings.TrimSpace(ident.UserID) == "" {
		return Identity{}, fmt.Errorf("%w: identity has no user id", ErrUnauthorized)
	}
	return ident, nil
}

// stamp returns a write time strictly after prev so every write produces a
// new version for MarkSynced to compare against.
func (s *DataService) stamp(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *DataService) write(ctx context.Context, e record.Entity) error {
	doc, err := record.Encode(e)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("write %s %s: %w", doc.Kind, doc.ID, err)
	}
	s.notifier.NotifyChanged(doc.Kind)
	return nil
}

type ListFilter struct {
	// ParentID narrows to the kind's indexed foreign key.
	ParentID string
	OwnerID  string
}

func kindOf[T any, PT interface {
	*T
	record.Entity
}]() record.Kind {
	return PT(new(T)).Kind()
}

func invalid(err error) error {
	if errors.Is(err, record.ErrInvalid) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// Create stamps ownership, validates, checks quota and writes item as a new
// unsynced record. A preset id is kept when no record holds it yet.
func Create[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, item *T) (*T, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Create")
	defer span.End()

	if item == nil {
		return nil, fmt.Errorf("%w: entity is required", ErrInvalidInput)
	}
	e := PT(item)
	kind := e.Kind()

	ident, err := s.Identity(ctx)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(e.Base().ID)
	if id == "" {
		id, err = s.idGen.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate %s id: %w", kind, err)
		}
	} else {
		_, exists, err := s.store.Get(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("check %s %s: %w", kind, id, err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s %s already exists", ErrInvalidInput, kind, id)
		}
	}

	now := s.stamp(time.Time{})
	*e.Base() = record.Meta{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedByUserID: ident.UserID,
	}

	if err := e.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.quota.Check(ctx, ident, e); err != nil {
		return nil, err
	}
	if err := s.write(ctx, e); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "record created", "kind", kind, "id", id, "owner", ident.UserID)
	return item, nil
}

// Update applies mutate to the live record id. Meta fields changed by mutate
// are discarded. Quota is re-checked when the change moves the record into a
// different counted scope.
func Update[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, id string, mutate func(*T) error) (*T, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Update")
	defer span.End()

	if mutate == nil {
		return nil, fmt.Errorf("%w: mutation is required", ErrInvalidInput)
	}

	item, err := Get[T, PT](ctx, s, id)
	if err != nil {
		return nil, err
	}
	e := PT(item)
	meta := *e.Base()
	before := s.quota.scope(e)

	if err := mutate(item); err != nil {
		return nil, err
	}
	*e.Base() = meta

	if err := e.Validate(); err != nil {
		return nil, invalid(err)
	}
	if after := s.quota.scope(e); after != before && after != "" {
		ident, err := s.Identity(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.quota.Check(ctx, ident, e); err != nil {
			return nil, err
		}
	}

	base := e.Base()
	base.UpdatedAt = s.stamp(meta.UpdatedAt)
	base.Synced = false
	if err := s.write(ctx, e); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete soft-deletes id. The row stays in the store so the sync engine can
// propagate the deletion.
func Delete[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, id string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.Delete")
	defer span.End()

	item, err := Get[T, PT](ctx, s, id)
	if err != nil {
		return err
	}
	ident, err := s.Identity(ctx)
	if err != nil {
		return err
	}

	base := PT(item).Base()
	now := s.stamp(base.UpdatedAt)
	base.IsDeleted = true
	base.DeletedAt = &now
	base.DeletedByUserID = ident.UserID
	base.UpdatedAt = now
	base.Synced = false

	return s.write(ctx, PT(item))
}

// Get returns the live record id or ErrNotFound.
func Get[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, id string) (*T, error) {
	item, ok, err := Find[T, PT](ctx, s, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kindOf[T, PT](), id)
	}
	return item, nil
}

// Find resolves a weak reference. Missing and soft-deleted records are
// reported as absent, not as errors.
func Find[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, id string) (*T, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, nil
	}

	kind := kindOf[T, PT]()
	doc, ok, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if !ok || doc.IsDeleted {
		return nil, false, nil
	}

	item, err := record.Decode[T, PT](doc)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

// List returns live records of T ordered by creation time.
func List[T any, PT interface {
	*T
	record.Entity
}](ctx context.Context, s *DataService, filter ListFilter) ([]T, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.List")
	defer span.End()

	kind := kindOf[T, PT]()
	docs, err := s.store.List(ctx, record.Query{
		Kind:     kind,
		OwnerID:  filter.OwnerID,
		ParentID: filter.ParentID,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := record.Decode[T, PT](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, nil
}
