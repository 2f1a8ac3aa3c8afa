package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("kind", "id", "payload").
		From("records").
		Where(Eq("kind", "teams"), Eq("owner_id", "u1"), IsNull("deleted_at")).
		OrderBy("created_at", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT kind, id, payload FROM records WHERE kind = ? AND owner_id = ? AND deleted_at IS NULL ORDER BY created_at, id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "teams" || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EmptyInMatchesNothing(t *testing.T) {
	query, args, err := Select("id").From("records").Where(In("id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT id FROM records WHERE 1=0" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_SuffixArgsFollowValues(t *testing.T) {
	query, args, err := InsertInto("records").
		Columns("kind", "id").
		Values("teams", "t1").
		Suffix("ON CONFLICT (kind, id) DO UPDATE SET synced = ? WHERE records.synced", true).
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO records (kind, id) VALUES (?, ?) ON CONFLICT (kind, id) DO UPDATE SET synced = ? WHERE records.synced"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "teams" || args[1] != "t1" || args[2] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("records").
		Set("synced", true).
		SetExpr("synced_at", "?", "2026-01-01").
		Where(Eq("kind", "teams"), Eq("id", "t1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE records SET synced = ?, synced_at = ? WHERE kind = ? AND id = ?"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != true || args[3] != "t1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	type row struct {
		Kind    string `db:"kind"`
		ID      string `db:"id"`
		Skipped string `db:"-"`
		hidden  string
	}

	query, args, err := InsertModel("records", row{Kind: "teams", ID: "t1", hidden: "x"}, "")
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}
	if query != "INSERT INTO records (kind, id) VALUES (?, ?)" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
