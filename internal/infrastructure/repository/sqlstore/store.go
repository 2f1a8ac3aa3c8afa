package sqlstore

import (
	"context"
	"regexp"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/touchline/internal/domain/record"
	qb "github.com/riskibarqy/touchline/internal/platform/querybuilder"
)

const upsertAssignments = "parent_id = excluded.parent_id, owner_id = excluded.owner_id, " +
	"created_at = excluded.created_at, updated_at = excluded.updated_at, " +
	"is_deleted = excluded.is_deleted, deleted_at = excluded.deleted_at, " +
	"deleted_by_user_id = excluded.deleted_by_user_id, synced = excluded.synced, " +
	"synced_at = excluded.synced_at, payload = excluded.payload"

var (
	putSuffix         = "ON CONFLICT (kind, id) DO UPDATE SET " + upsertAssignments
	applyRemoteSuffix = putSuffix + " WHERE records.synced = TRUE"
)

type Config struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

// Store is a record.Store over sqlite or postgres.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects through otelsqlx so every statement is traced, then applies
// the embedded schema when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, crerr.Newf("unsupported local store driver %q", driver)
	}

	db, err := otelsqlx.Open(driver, cfg.DSN,
		otelsql.WithDBSystem(driver),
		otelsql.WithDBName(dbName(driver, cfg.DSN)),
		otelsql.WithQueryFormatter(formatQueryForTrace),
	)
	if err != nil {
		return nil, crerr.Wrapf(err, "open %s local store", driver)
	}
	if driver == DriverSQLite {
		// One writer per device.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, crerr.Wrapf(err, "ping %s local store", driver)
	}

	if cfg.AutoMigrate {
		if err := MigrateUp(db.DB, driver); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, driver: driver}, nil
}

func New(db *sqlx.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, doc record.Document) error {
	query, args, err := qb.InsertModel(tableRecords, toTableModel(doc), putSuffix)
	if err != nil {
		return crerr.Wrap(err, "build put record query")
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return crerr.Wrapf(err, "put %s %s", doc.Kind, doc.ID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind record.Kind, id string) (record.Document, bool, error) {
	query, args, err := qb.Select(recordColumns...).From(tableRecords).
		Where(qb.Eq("kind", string(kind)), qb.Eq("id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return record.Document{}, false, crerr.Wrap(err, "build get record query")
	}

	var rows []recordTableModel
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return record.Document{}, false, crerr.Wrapf(err, "get %s %s", kind, id)
	}
	if len(rows) == 0 {
		return record.Document{}, false, nil
	}
	return rows[0].toDocument(), true, nil
}

func (s *Store) List(ctx context.Context, q record.Query) ([]record.Document, error) {
	query, args, err := qb.Select(recordColumns...).From(tableRecords).
		Where(queryConditions(q)...).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build list records query")
	}
	return s.selectDocuments(ctx, query, args, "list "+string(q.Kind))
}

func (s *Store) Count(ctx context.Context, q record.Query) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From(tableRecords).
		Where(queryConditions(q)...).
		ToSQL()
	if err != nil {
		return 0, crerr.Wrap(err, "build count records query")
	}

	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, crerr.Wrapf(err, "count %s", q.Kind)
	}
	return n, nil
}

func (s *Store) ListUnsynced(ctx context.Context, kind record.Kind) ([]record.Document, error) {
	query, args, err := qb.Select(recordColumns...).From(tableRecords).
		Where(qb.Eq("kind", string(kind)), qb.Eq("synced", false)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, crerr.Wrap(err, "build list unsynced query")
	}
	return s.selectDocuments(ctx, query, args, "list unsynced "+string(kind))
}

func (s *Store) MarkSynced(ctx context.Context, kind record.Kind, id string, version, at time.Time) (bool, error) {
	query, args, err := qb.Update(tableRecords).
		Set("synced", true).
		Set("synced_at", at.UnixNano()).
		Where(
			qb.Eq("kind", string(kind)),
			qb.Eq("id", id),
			qb.Eq("updated_at", version.UnixNano()),
		).
		ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build mark synced query")
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, crerr.Wrapf(err, "mark synced %s %s", kind, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, crerr.Wrap(err, "mark synced rows affected")
	}
	return n > 0, nil
}

func (s *Store) ApplyRemote(ctx context.Context, doc record.Document) (bool, error) {
	doc.Synced = true
	query, args, err := qb.InsertModel(tableRecords, toTableModel(doc), applyRemoteSuffix)
	if err != nil {
		return false, crerr.Wrap(err, "build apply remote query")
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return false, crerr.Wrapf(err, "apply remote %s %s", doc.Kind, doc.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, crerr.Wrap(err, "apply remote rows affected")
	}
	return n > 0, nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	query, args, err := qb.Select("COUNT(*)").From(tableRecords).ToSQL()
	if err != nil {
		return false, crerr.Wrap(err, "build is empty query")
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, crerr.Wrap(err, "count records")
	}
	return n == 0, nil
}

func (s *Store) selectDocuments(ctx context.Context, query string, args []any, op string) ([]record.Document, error) {
	var rows []recordTableModel
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, crerr.Wrap(err, op)
	}

	out := make([]record.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDocument())
	}
	return out, nil
}

func queryConditions(q record.Query) []qb.Condition {
	conds := []qb.Condition{qb.Eq("kind", string(q.Kind))}
	if q.OwnerID != "" {
		conds = append(conds, qb.Eq("owner_id", q.OwnerID))
	}
	if q.ParentID != "" {
		conds = append(conds, qb.Eq("parent_id", q.ParentID))
	}
	if !q.IncludeDeleted {
		conds = append(conds, qb.Eq("is_deleted", false))
	}
	return conds
}

const maxTracedQueryLength = 512

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

func formatQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
