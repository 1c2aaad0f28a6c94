package users

import (
	"context"
	"fmt"
	"time"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, igreja_id, name, email, cpf, phone, role, last_login_at, created_at, updated_at, password_hash`

// PostgresRepository implements Repository with pgx. It accepts a pool or a
// transaction.
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (igreja_id, name, email, cpf, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		u.IgrejaID, u.Name, u.Email, u.CPF, u.Phone, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetByCPF(ctx context.Context, cpf string) (*User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE cpf = $1`, cpf)
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET name = $2, email = $3, cpf = $4, phone = $5, password_hash = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, u.Email, u.CPF, u.Phone, u.PasswordHash,
	).Scan(&u.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("user")
	}
	return nil
}

func (r *PostgresRepository) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("user")
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg any) (*User, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.IgrejaID, &u.Name, &u.Email, &u.CPF, &u.Phone, &u.Role,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash)
	return u, err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return errs.NotFound("user")
	case database.IsUniqueViolation(err):
		if database.ConstraintName(err) == "users_cpf_key" {
			return ErrCPFTaken
		}
		return ErrEmailTaken
	case database.IsForeignKeyViolation(err):
		return errs.NotFound("church")
	default:
		return err
	}
}
