package record

import (
	"context"
	"time"
)

// Store is the durable local collection storage. Every method is atomic at
// the single-document level.
type Store interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, kind Kind, id string) (Document, bool, error)
	// List returns matching documents ordered by creation time, then id.
	List(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)
	// ListUnsynced includes soft-deleted rows so deletions propagate.
	ListUnsynced(ctx context.Context, kind Kind) ([]Document, error)
	// MarkSynced flags the row synced only while its UpdatedAt still equals
	// version, so an edit made during the push stays pending.
	MarkSynced(ctx context.Context, kind Kind, id string, version, at time.Time) (bool, error)
	// ApplyRemote writes an incoming remote document unless the local copy is
	// unsynced. It reports whether the write happened.
	ApplyRemote(ctx context.Context, doc Document) (bool, error)
	IsEmpty(ctx context.Context) (bool, error)
}
