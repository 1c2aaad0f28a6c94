package churches

import (
	"context"
	"fmt"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const churchColumns = `id, name, slug, cnpj, street, number, neighborhood, city, state, zip_code, created_at, updated_at`

// PostgresRepository implements Repository with pgx. It accepts a pool or a
// transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *Church) error {
	rows, err := r.db.Query(ctx, `
		INSERT INTO igrejas (name, slug, cnpj, street, number, neighborhood, city, state, zip_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+churchColumns,
		c.Name, c.Slug, c.CNPJ, c.Street, c.Number, c.Neighborhood, c.City, c.State, c.ZipCode,
	)
	if err != nil {
		return translate(err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanChurch)
	if err != nil {
		return translate(err)
	}
	*c = created
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Church, error) {
	return r.one(ctx, `SELECT `+churchColumns+` FROM igrejas WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByCNPJ(ctx context.Context, cnpj string) (*Church, error) {
	return r.one(ctx, `SELECT `+churchColumns+` FROM igrejas WHERE cnpj = $1`, cnpj)
}

func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM igrejas WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query slug: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Church, error) {
	rows, err := r.db.Query(ctx, `SELECT `+churchColumns+` FROM igrejas ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query churches: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanChurch)
	if err != nil {
		return nil, fmt.Errorf("scan churches: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *Church) error {
	err := r.db.QueryRow(ctx, `
		UPDATE igrejas
		SET name = $2, cnpj = $3, street = $4, number = $5, neighborhood = $6,
		    city = $7, state = $8, zip_code = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.CNPJ, c.Street, c.Number, c.Neighborhood, c.City, c.State, c.ZipCode,
	).Scan(&c.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM igrejas WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("church")
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*Church, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query church: %w", err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanChurch)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func scanChurch(row pgx.CollectableRow) (Church, error) {
	var c Church
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.CNPJ, &c.Street, &c.Number, &c.Neighborhood,
		&c.City, &c.State, &c.ZipCode, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return errs.NotFound("church")
	case database.IsUniqueViolation(err):
		if database.ConstraintName(err) == "igrejas_slug_key" {
			return errs.Conflict("church slug already in use")
		}
		return ErrCNPJTaken
	default:
		return err
	}
}
