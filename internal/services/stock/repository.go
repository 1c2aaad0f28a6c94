package stock

import (
	"context"
	"fmt"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectItems = `
	SELECT s.id, s.product_id, s.quantity, s.created_at, s.updated_at,
	       p.id, p.name, p.code, p.price
	FROM stock s
	LEFT JOIN products p ON p.id = s.product_id`

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *Item) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO stock (product_id, quantity)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return r.one(ctx, selectItems+` WHERE s.id = $1`, id)
}

func (r *PostgresRepository) GetByProduct(ctx context.Context, productID uuid.UUID) (*Item, error) {
	return r.one(ctx, selectItems+` WHERE s.product_id = $1`, productID)
}

func (r *PostgresRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx, selectItems+` ORDER BY p.name, s.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("scan stock: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Update(ctx context.Context, item *Item) error {
	err := r.db.QueryRow(ctx, `
		UPDATE stock SET quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		item.ID, item.Quantity,
	).Scan(&item.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stock WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("stock")
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*Item, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var (
		item  Item
		pid   *uuid.UUID
		name  *string
		code  *string
		price *int64
	)
	if err := row.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&pid, &name, &code, &price); err != nil {
		return Item{}, err
	}
	if pid != nil {
		item.Product = &products.Ref{ID: *pid, Name: *name, Code: *code, Price: *price}
	}
	return item, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return errs.NotFound("stock")
	case database.IsUniqueViolation(err):
		return ErrAlreadyStocked
	case database.IsForeignKeyViolation(err):
		return errs.NotFound("product")
	default:
		return err
	}
}
