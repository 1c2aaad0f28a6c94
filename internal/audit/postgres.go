package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bengobox/church-admin/internal/database"
)

// PostgresStore keeps audit records in the audit_log table.
type PostgresStore struct {
	db database.Querier
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert appends one row. created_at is assigned by the database clock.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	oldData, err := encodeSnapshot(rec.OldData)
	if err != nil {
		return fmt.Errorf("encode old data: %w", err)
	}
	newData, err := encodeSnapshot(rec.NewData)
	if err != nil {
		return fmt.Errorf("encode new data: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO audit_log (id, user_id, action, entity_type, entity_id, old_data, new_data, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9)
	`, rec.ID, rec.UserID, string(rec.Action), string(rec.EntityType), rec.EntityID,
		oldData, newData, rec.IPAddress, rec.UserAgent)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns matching rows newest first, joined with the acting user.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Record, error) {
	f = f.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != nil {
		add("a.user_id = $%d", *f.UserID)
	}
	if f.Action != "" {
		add("a.action = $%d", string(f.Action))
	}
	if f.EntityType != "" {
		add("a.entity_type = $%d", string(f.EntityType))
	}
	if f.EntityID != "" {
		add("a.entity_id = $%d", f.EntityID)
	}

	query := `
		SELECT a.id, a.user_id, u.name, u.email, a.action, a.entity_type, a.entity_id,
		       a.old_data::text, a.new_data::text, a.ip_address, a.user_agent, a.created_at
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.user_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf("\n\t\tORDER BY a.created_at DESC, a.id DESC\n\t\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec              Record
			action, entity   string
			oldText, newText *string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.UserName, &rec.UserEmail, &action, &entity,
			&rec.EntityID, &oldText, &newText, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		rec.Action = Action(action)
		rec.EntityType = EntityType(entity)
		rec.OldData = decodeSnapshot(oldText)
		rec.NewData = decodeSnapshot(newText)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return records, nil
}

func encodeSnapshot(data map[string]any) (*string, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func decodeSnapshot(text *string) map[string]any {
	if text == nil || *text == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(*text), &out); err != nil {
		return nil
	}
	return out
}
