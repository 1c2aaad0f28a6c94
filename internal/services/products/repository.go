package products

import (
	"context"
	"fmt"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, code, price, created_at, updated_at`

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, code, price)
		VALUES ($1, $2, $3)
		RETURNING `+productColumns,
		p.Name, p.Code, p.Price,
	).Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE code = $1`, code)
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	err := r.db.QueryRow(ctx, `
		UPDATE products SET name = $2, code = $3, price = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Code, p.Price,
	).Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("product")
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*Product, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return errs.NotFound("product")
	case database.IsUniqueViolation(err):
		return ErrCodeTaken
	case database.IsForeignKeyViolation(err):
		return errs.Conflict("product is referenced by existing orders")
	default:
		return err
	}
}
