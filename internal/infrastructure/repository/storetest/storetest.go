// Package storetest holds the behaviour every record.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

var t0 = time.Date(2026, 2, 14, 9, 30, 0, 123456789, time.UTC)

func doc(kind record.Kind, id, owner, parent string, createdAt time.Time, synced bool) record.Document {
	return record.Document{
		Kind: kind,
		Meta: record.Meta{
			ID:              id,
			CreatedAt:       createdAt,
			UpdatedAt:       createdAt,
			CreatedByUserID: owner,
			Synced:          synced,
		},
		ParentID: parent,
		Payload:  []byte(`{"id":"` + id + `"}`),
	}
}

// Run exercises a fresh store returned by newStore for every subtest.
func Run(t *testing.T, newStore func(t *testing.T) record.Store) {
	t.Run("put and get", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		want := doc(record.KindTeams, "t1", "u1", "", t0, false)
		require.NoError(t, store.Put(ctx, want))

		got, ok, err := store.Get(ctx, record.KindTeams, "t1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want.ID, got.ID)
		require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
		require.False(t, got.Synced)
		require.JSONEq(t, string(want.Payload), string(got.Payload))

		_, ok, err = store.Get(ctx, record.KindPlayers, "t1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("list filters and orders", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, doc(record.KindEvents, "e2", "u1", "m1", t0.Add(time.Minute), false)))
		require.NoError(t, store.Put(ctx, doc(record.KindEvents, "e1", "u1", "m1", t0, false)))
		require.NoError(t, store.Put(ctx, doc(record.KindEvents, "e3", "u1", "m2", t0, false)))
		require.NoError(t, store.Put(ctx, doc(record.KindEvents, "e4", "u2", "m1", t0, false)))

		deleted := doc(record.KindEvents, "e5", "u1", "m1", t0, false)
		deleted.IsDeleted = true
		require.NoError(t, store.Put(ctx, deleted))

		docs, err := store.List(ctx, record.Query{Kind: record.KindEvents, OwnerID: "u1", ParentID: "m1"})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		require.Equal(t, "e1", docs[0].ID)
		require.Equal(t, "e2", docs[1].ID)

		n, err := store.Count(ctx, record.Query{Kind: record.KindEvents, ParentID: "m1", IncludeDeleted: true})
		require.NoError(t, err)
		require.Equal(t, 4, n)
	})

	t.Run("unsynced includes deleted rows", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		deleted := doc(record.KindTeams, "t1", "u1", "", t0, false)
		deleted.IsDeleted = true
		require.NoError(t, store.Put(ctx, deleted))
		require.NoError(t, store.Put(ctx, doc(record.KindTeams, "t2", "u1", "", t0, true)))

		docs, err := store.ListUnsynced(ctx, record.KindTeams)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "t1", docs[0].ID)
		require.True(t, docs[0].IsDeleted)
	})

	t.Run("mark synced respects version", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		d := doc(record.KindTeams, "t1", "u1", "", t0, false)
		require.NoError(t, store.Put(ctx, d))

		ok, err := store.MarkSynced(ctx, record.KindTeams, "t1", t0.Add(time.Second), t0)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = store.MarkSynced(ctx, record.KindTeams, "t1", t0, t0.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		got, _, err := store.Get(ctx, record.KindTeams, "t1")
		require.NoError(t, err)
		require.True(t, got.Synced)
		require.NotNil(t, got.SyncedAt)
	})

	t.Run("apply remote keeps unsynced local", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		local := doc(record.KindMatches, "m1", "u1", "s1", t0, false)
		local.Payload = []byte(`{"venue":"local"}`)
		require.NoError(t, store.Put(ctx, local))

		remote := doc(record.KindMatches, "m1", "u1", "s1", t0, true)
		remote.UpdatedAt = t0.Add(time.Hour)
		remote.Payload = []byte(`{"venue":"remote"}`)

		applied, err := store.ApplyRemote(ctx, remote)
		require.NoError(t, err)
		require.False(t, applied)

		got, _, err := store.Get(ctx, record.KindMatches, "m1")
		require.NoError(t, err)
		require.JSONEq(t, `{"venue":"local"}`, string(got.Payload))
		require.False(t, got.Synced)
	})

	t.Run("apply remote replaces synced local", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.Put(ctx, doc(record.KindMatches, "m1", "u1", "s1", t0, true)))

		remote := doc(record.KindMatches, "m1", "u1", "s2", t0, false)
		remote.Payload = []byte(`{"venue":"remote"}`)

		applied, err := store.ApplyRemote(ctx, remote)
		require.NoError(t, err)
		require.True(t, applied)

		got, _, err := store.Get(ctx, record.KindMatches, "m1")
		require.NoError(t, err)
		require.JSONEq(t, `{"venue":"remote"}`, string(got.Payload))
		require.Equal(t, "s2", got.ParentID)
		require.True(t, got.Synced)
	})

	t.Run("apply remote inserts missing rows", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		empty, err := store.IsEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)

		applied, err := store.ApplyRemote(ctx, doc(record.KindSeasons, "s1", "u1", "", t0, false))
		require.NoError(t, err)
		require.True(t, applied)

		empty, err = store.IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}
