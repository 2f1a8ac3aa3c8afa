package record

import (
	"time"
)

// Kind names an entity collection. It doubles as the remote sync path segment.
type Kind string

const (
	KindTeams          Kind = "teams"
	KindPlayers        Kind = "players"
	KindSeasons        Kind = "seasons"
	KindMatches        Kind = "matches"
	KindEvents         Kind = "events"
	KindMatchPeriods   Kind = "match_periods"
	KindMatchStates    Kind = "match_states"
	KindDefaultLineups Kind = "default_lineups"
)

// SyncOrder lists kinds so that referenced rows reach the remote before the
// rows pointing at them.
var SyncOrder = []Kind{
	KindTeams,
	KindSeasons,
	KindPlayers,
	KindMatches,
	KindMatchPeriods,
	KindMatchStates,
	KindEvents,
	KindDefaultLineups,
}

func (k Kind) Valid() bool {
	for _, known := range SyncOrder {
		if k == known {
			return true
		}
	}
	return false
}

// Meta carries the ownership, soft-delete and sync columns shared by every entity.
type Meta struct {
	ID              string     `json:"id"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CreatedByUserID string     `json:"createdByUserId"`
	IsDeleted       bool       `json:"isDeleted"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	DeletedByUserID string     `json:"deletedByUserId,omitempty"`
	Synced          bool       `json:"synced"`
	SyncedAt        *time.Time `json:"syncedAt,omitempty"`
}

func (m *Meta) Base() *Meta { return m }

// Entity is implemented by pointers to every domain entity type.
type Entity interface {
	Kind() Kind
	Base() *Meta
	// ParentRef is the foreign key the store indexes for this kind, or "".
	ParentRef() string
	Validate() error
}

// Document is the storage and wire form of an entity. Meta columns are
// authoritative; Payload is the full entity JSON.
type Document struct {
	Kind Kind
	Meta
	ParentID string
	Payload  []byte
}

// Query selects documents of one kind.
type Query struct {
	Kind           Kind
	OwnerID        string
	ParentID       string
	IncludeDeleted bool
}

func (q Query) Matches(doc Document) bool {
	if doc.Kind != q.Kind {
		return false
	}
	if !q.IncludeDeleted && doc.IsDeleted {
		return false
	}
	if q.OwnerID != "" && doc.CreatedByUserID != q.OwnerID {
		return false
	}
	if q.ParentID != "" && doc.ParentID != q.ParentID {
		return false
	}
	return true
}
