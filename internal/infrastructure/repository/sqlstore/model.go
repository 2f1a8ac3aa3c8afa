package sqlstore

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

const tableRecords = "records"

var recordColumns = []string{
	"kind",
	"id",
	"parent_id",
	"owner_id",
	"created_at",
	"updated_at",
	"is_deleted",
	"deleted_at",
	"deleted_by_user_id",
	"synced",
	"synced_at",
	"payload",
}

// Timestamps are unix nanoseconds so MarkSynced can compare versions exactly
// on every driver.
type recordTableModel struct {
	Kind            string        `db:"kind"`
	ID              string        `db:"id"`
	ParentID        string        `db:"parent_id"`
	OwnerID         string        `db:"owner_id"`
	CreatedAt       int64         `db:"created_at"`
	UpdatedAt       int64         `db:"updated_at"`
	IsDeleted       bool          `db:"is_deleted"`
	DeletedAt       sql.NullInt64 `db:"deleted_at"`
	DeletedByUserID string        `db:"deleted_by_user_id"`
	Synced          bool          `db:"synced"`
	SyncedAt        sql.NullInt64 `db:"synced_at"`
	Payload         string        `db:"payload"`
}

func toTableModel(doc record.Document) recordTableModel {
	return recordTableModel{
		Kind:            string(doc.Kind),
		ID:              doc.ID,
		ParentID:        doc.ParentID,
		OwnerID:         doc.CreatedByUserID,
		CreatedAt:       doc.CreatedAt.UnixNano(),
		UpdatedAt:       doc.UpdatedAt.UnixNano(),
		IsDeleted:       doc.IsDeleted,
		DeletedAt:       timeToNullInt64(doc.DeletedAt),
		DeletedByUserID: doc.DeletedByUserID,
		Synced:          doc.Synced,
		SyncedAt:        timeToNullInt64(doc.SyncedAt),
		Payload:         string(doc.Payload),
	}
}

func (m recordTableModel) toDocument() record.Document {
	return record.Document{
		Kind: record.Kind(m.Kind),
		Meta: record.Meta{
			ID:              m.ID,
			CreatedAt:       time.Unix(0, m.CreatedAt).UTC(),
			UpdatedAt:       time.Unix(0, m.UpdatedAt).UTC(),
			CreatedByUserID: m.OwnerID,
			IsDeleted:       m.IsDeleted,
			DeletedAt:       nullInt64ToTime(m.DeletedAt),
			DeletedByUserID: m.DeletedByUserID,
			Synced:          m.Synced,
			SyncedAt:        nullInt64ToTime(m.SyncedAt),
		},
		ParentID: m.ParentID,
		Payload:  []byte(m.Payload),
	}
}

func timeToNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullInt64ToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
