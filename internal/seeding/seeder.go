// Package seeding bootstraps a fresh database with a default church and its
// administrator.
package seeding

import (
	"context"
	"errors"
	"fmt"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/auth"
	"github.com/bengobox/church-admin/internal/services/users"
	"go.uber.org/zap"
)

// Registrar creates a church together with its first admin.
type Registrar interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
}

// UserLookup finds accounts by email.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
}

// Defaults describes the seeded church and admin.
type Defaults struct {
	ChurchName    string
	AdminName     string
	AdminEmail    string
	AdminPassword string
	AdminCPF      string
	AdminPhone    string
}

// Seeder is idempotent: an existing admin email leaves the database untouched.
type Seeder struct {
	registrar Registrar
	users     UserLookup
	logger    *zap.Logger
}

func New(registrar Registrar, users UserLookup, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{registrar: registrar, users: users, logger: logger}
}

// SeedDefaults registers the default church and admin unless the admin email
// already exists. It reports whether anything was created.
func (s *Seeder) SeedDefaults(ctx context.Context, d Defaults) (bool, error) {
	email, err := users.NormalizeEmail(d.AdminEmail)
	if err != nil {
		return false, err
	}

	_, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.Info("admin already present, skipping seed", zap.String("email", email))
		return false, nil
	case !errors.Is(err, errs.ErrNotFound):
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	result, err := s.registrar.Register(ctx, auth.RegisterInput{
		ChurchName: d.ChurchName,
		AdminName:  d.AdminName,
		Email:      email,
		Password:   d.AdminPassword,
		CPF:        d.AdminCPF,
		Phone:      d.AdminPhone,
		Actor:      audit.Actor{UserAgent: "church-seed"},
	})
	if err != nil {
		return false, fmt.Errorf("register defaults: %w", err)
	}

	s.logger.Info("seeded default church",
		zap.Stringer("igreja_id", result.Igreja.ID),
		zap.Stringer("admin_id", result.User.ID),
		zap.String("slug", result.Igreja.Slug),
	)
	return true, nil
}
