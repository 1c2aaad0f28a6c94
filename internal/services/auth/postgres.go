package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/google/uuid"
)

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}

// PostgresRegistrar inserts the church and its admin in one transaction.
type PostgresRegistrar struct {
	tx TxRunner
}

// NewPostgresRegistrar constructs a PostgresRegistrar.
func NewPostgresRegistrar(tx TxRunner) *PostgresRegistrar {
	return &PostgresRegistrar{tx: tx}
}

// Register derives a free slug, creates the church and links the admin to it.
func (r *PostgresRegistrar) Register(ctx context.Context, church *churches.Church, admin *users.User) error {
	return r.tx.InTx(ctx, func(q database.Querier) error {
		churchRepo := churches.NewPostgresRepository(q)
		slug, err := churches.UniqueSlug(ctx, churchRepo, church.Name)
		if err != nil {
			return err
		}
		church.Slug = slug
		if err := churchRepo.Create(ctx, church); err != nil {
			return err
		}
		admin.IgrejaID = &church.ID
		return users.NewPostgresRepository(q).Create(ctx, admin)
	})
}

// PostgresResetStore keeps password reset tokens in password_resets.
type PostgresResetStore struct {
	db database.Querier
}

// NewPostgresResetStore constructs a PostgresResetStore.
func NewPostgresResetStore(db database.Querier) *PostgresResetStore {
	return &PostgresResetStore{db: db}
}

func (s *PostgresResetStore) Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO password_resets (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		userID, tokenHash, expiresAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert password reset: %w", err)
	}
	return id, nil
}

// Consume is a single statement so a token can be used at most once.
func (s *PostgresResetStore) Consume(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, uuid.UUID, error) {
	var resetID, userID uuid.UUID
	err := s.db.QueryRow(ctx, `
		UPDATE password_resets SET used_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING id, user_id`,
		tokenHash, now,
	).Scan(&resetID, &userID)
	if err != nil {
		if database.IsNoRows(err) {
			return uuid.Nil, uuid.Nil, errs.NotFound("password reset")
		}
		return uuid.Nil, uuid.Nil, fmt.Errorf("consume password reset: %w", err)
	}
	return resetID, userID, nil
}
