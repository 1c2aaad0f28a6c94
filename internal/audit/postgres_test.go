package audit

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type captureQuerier struct {
	sql      string
	args     []any
	rows     [][]any
	queryErr error
}

func (q *captureQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *captureQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return &sliceRows{rows: q.rows, pos: -1}, nil
}

func (q *captureQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql, q.args = sql, args
	return &sliceRows{pos: -1}
}

// sliceRows serves canned rows, assigning each column straight into the
// matching Scan destination.
type sliceRows struct {
	rows [][]any
	pos  int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }

func (r *sliceRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *sliceRows) Values() ([]any, error) {
	return r.rows[r.pos], nil
}

func (r *sliceRows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return pgx.ErrNoRows
	}
	row := r.rows[r.pos]
	if len(row) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func squash(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func strPtr(s string) *string { return &s }

func TestPostgresStoreListBuildsQuery(t *testing.T) {
	userID := uuid.New()

	cases := []struct {
		name     string
		filter   Filter
		where    string
		tail     string
		wantArgs []any
	}{
		{
			name:     "no filter",
			filter:   Filter{},
			tail:     "LIMIT $1 OFFSET $2",
			wantArgs: []any{DefaultLimit, 0},
		},
		{
			name:     "user only",
			filter:   Filter{UserID: &userID},
			where:    "WHERE a.user_id = $1",
			tail:     "LIMIT $2 OFFSET $3",
			wantArgs: []any{userID, DefaultLimit, 0},
		},
		{
			name:     "action and entity type",
			filter:   Filter{Action: ActionUpdate, EntityType: EntityProducts},
			where:    "WHERE a.action = $1 AND a.entity_type = $2",
			tail:     "LIMIT $3 OFFSET $4",
			wantArgs: []any{"UPDATE", "products", DefaultLimit, 0},
		},
		{
			name: "every filter with paging",
			filter: Filter{
				UserID:     &userID,
				Action:     ActionDelete,
				EntityType: EntityIgrejas,
				EntityID:   "c-9",
				Limit:      10,
				Offset:     20,
			},
			where:    "WHERE a.user_id = $1 AND a.action = $2 AND a.entity_type = $3 AND a.entity_id = $4",
			tail:     "LIMIT $5 OFFSET $6",
			wantArgs: []any{userID, "DELETE", "igrejas", "c-9", 10, 20},
		},
		{
			name:     "paging clamped",
			filter:   Filter{EntityID: "p-1", Limit: MaxLimit + 500, Offset: -3},
			where:    "WHERE a.entity_id = $1",
			tail:     "LIMIT $2 OFFSET $3",
			wantArgs: []any{"p-1", MaxLimit, 0},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &captureQuerier{}
			records, err := NewPostgresStore(q).List(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(records) != 0 {
				t.Fatalf("expected no records, got %d", len(records))
			}

			sql := squash(q.sql)
			if !strings.Contains(sql, "FROM audit_log a LEFT JOIN users u ON u.id = a.user_id") {
				t.Fatalf("missing user join: %s", sql)
			}
			if tc.where == "" {
				if strings.Contains(sql, "WHERE") {
					t.Fatalf("unexpected WHERE: %s", sql)
				}
			} else if !strings.Contains(sql, tc.where+" ORDER BY") {
				t.Fatalf("want %q before ORDER BY in %s", tc.where, sql)
			}
			if !strings.HasSuffix(sql, "ORDER BY a.created_at DESC, a.id DESC "+tc.tail) {
				t.Fatalf("want newest-first %q at end of %s", tc.tail, sql)
			}
			if !reflect.DeepEqual(q.args, tc.wantArgs) {
				t.Fatalf("args = %#v, want %#v", q.args, tc.wantArgs)
			}
		})
	}
}

func TestPostgresStoreListDecodesRows(t *testing.T) {
	id, userID := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &captureQuerier{rows: [][]any{
		{id, userID, strPtr("Ana"), strPtr("ana@igreja.org"), "UPDATE", "products", strPtr("p-1"),
			strPtr(`{"name":"Bíblia","price":10}`), strPtr(`{"name":"Bíblia","price":12.5}`),
			strPtr("10.0.0.1"), strPtr("curl/8"), at},
		{uuid.New(), userID, nil, nil, "LOGIN", "users", nil, nil, strPtr("not json"), nil, nil, at},
	}}

	records, err := NewPostgresStore(q).List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != id || first.UserID != userID || !first.CreatedAt.Equal(at) {
		t.Fatalf("unexpected identity %+v", first)
	}
	if first.Action != ActionUpdate || first.EntityType != EntityProducts {
		t.Fatalf("unexpected action %s/%s", first.Action, first.EntityType)
	}
	if first.UserName == nil || *first.UserName != "Ana" || *first.EntityID != "p-1" {
		t.Fatalf("unexpected joined fields %+v", first)
	}
	if first.OldData["price"] != float64(10) || first.NewData["price"] != 12.5 || first.NewData["name"] != "Bíblia" {
		t.Fatalf("snapshots not decoded: old=%v new=%v", first.OldData, first.NewData)
	}

	second := records[1]
	if second.OldData != nil || second.NewData != nil {
		t.Fatalf("expected nil snapshots, got old=%v new=%v", second.OldData, second.NewData)
	}
	if second.UserName != nil || second.EntityID != nil {
		t.Fatalf("expected null columns to stay nil %+v", second)
	}
}

func TestPostgresStoreListWrapsQueryError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewPostgresStore(&captureQuerier{queryErr: boom}).List(context.Background(), Filter{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPostgresStoreInsertLeavesTimestampToDatabase(t *testing.T) {
	q := &captureQuerier{}
	rec := Record{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Action:     ActionCreate,
		EntityType: EntityStock,
		EntityID:   strPtr("s-1"),
		NewData:    map[string]any{"quantity": float64(3)},
	}
	if err := NewPostgresStore(q).Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if strings.Contains(q.sql, "created_at") {
		t.Fatalf("insert must not write created_at: %s", squash(q.sql))
	}
	if len(q.args) != 9 {
		t.Fatalf("expected 9 args, got %d", len(q.args))
	}
	if q.args[2] != "CREATE" || q.args[3] != "stock" {
		t.Fatalf("unexpected action args %v %v", q.args[2], q.args[3])
	}
	if old, ok := q.args[5].(*string); !ok || old != nil {
		t.Fatalf("expected NULL old_data, got %#v", q.args[5])
	}
	if nd, ok := q.args[6].(*string); !ok || nd == nil || *nd != `{"quantity":3}` {
		t.Fatalf("unexpected new_data %#v", q.args[6])
	}
}

func TestDecodeSnapshot(t *testing.T) {
	cases := map[string]struct {
		in   *string
		want map[string]any
	}{
		"null column":  {in: nil, want: nil},
		"empty text":   {in: strPtr(""), want: nil},
		"invalid json": {in: strPtr("{"), want: nil},
		"object":       {in: strPtr(`{"a":"b","n":1}`), want: map[string]any{"a": "b", "n": float64(1)}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := decodeSnapshot(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
