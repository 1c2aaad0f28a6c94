// Package users manages dashboard accounts.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/google/uuid"
)

var (
	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken = errs.Conflict("email already registered")
	// ErrCPFTaken is returned when another account already uses the CPF.
	ErrCPFTaken = errs.Conflict("cpf already registered")
	// ErrSelfDelete is returned when a user tries to delete their own account.
	ErrSelfDelete = errs.Invalid("id", "you cannot delete your own account")
)

// DefaultRole is assigned to accounts created through the API.
const DefaultRole = "admin"

// User is an account. PasswordHash never leaves the service boundary.
type User struct {
	ID           uuid.UUID  `json:"id"`
	IgrejaID     *uuid.UUID `json:"igrejaId"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	CPF          *string    `json:"cpf"`
	Phone        string     `json:"phone"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	PasswordHash string     `json:"-"`
}

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCPF(ctx context.Context, cpf string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PasswordHasher hashes new passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service implements user CRUD with audit recording.
type Service struct {
	repo      Repository
	hasher    PasswordHasher
	auditor   Auditor
	minLength int
}

// New constructs a Service. minPasswordLength below one falls back to six.
func New(repo Repository, hasher PasswordHasher, auditor Auditor, minPasswordLength int) *Service {
	if minPasswordLength < 1 {
		minPasswordLength = 6
	}
	return &Service{repo: repo, hasher: hasher, auditor: auditor, minLength: minPasswordLength}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	CPF      string
	Phone    string
	IgrejaID *uuid.UUID
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	CPF      *string
	Phone    *string
}

// Create validates and stores a new account.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Email == "" || in.Password == "" || in.CPF == "" || in.Phone == "" {
		return nil, errs.Invalid("", "name, email, password, cpf and phone are required")
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	cpf, err := FormatCPF(in.CPF)
	if err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(in.Password, s.minLength); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureCPFFree(ctx, cpf, uuid.Nil); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		IgrejaID:     in.IgrejaID,
		Name:         name,
		Email:        email,
		CPF:          &cpf,
		Phone:        phone,
		Role:         DefaultRole,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityUsers,
		EntityID:   u.ID.String(),
		NewData:    audit.Snapshot(u),
	})
	return u, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return items, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the provided fields. A new password is hashed before storage
// and never appears in the audit snapshots.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in UpdateInput) (*User, error) {
	if in.Name == nil && in.Email == nil && in.Password == nil && in.CPF == nil && in.Phone == nil {
		return nil, errs.Invalid("", "provide at least one field to update")
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errs.Invalid("name", "must not be empty")
		}
		updated.Name = name
	}
	if in.Email != nil {
		email, err := NormalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != existing.Email {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
		}
		updated.Email = email
	}
	if in.CPF != nil {
		cpf, err := FormatCPF(*in.CPF)
		if err != nil {
			return nil, err
		}
		if existing.CPF == nil || *existing.CPF != cpf {
			if err := s.ensureCPFFree(ctx, cpf, id); err != nil {
				return nil, err
			}
		}
		updated.CPF = &cpf
	}
	if in.Phone != nil {
		phone, err := NormalizePhone(*in.Phone)
		if err != nil {
			return nil, err
		}
		updated.Phone = phone
	}
	if in.Password != nil {
		if err := CheckPassword(*in.Password, s.minLength); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityUsers,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
		NewData:    audit.Snapshot(&updated),
	})
	return &updated, nil
}

// Delete removes an account other than the actor's own.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*User, error) {
	if id == actor.UserID {
		return nil, ErrSelfDelete
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionDelete,
		EntityType: audit.EntityUsers,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
	})
	return existing, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	other, err := s.repo.GetByEmail(ctx, email)
	return takenUnlessSelf(other, err, self, ErrEmailTaken)
}

func (s *Service) ensureCPFFree(ctx context.Context, cpf string, self uuid.UUID) error {
	other, err := s.repo.GetByCPF(ctx, cpf)
	return takenUnlessSelf(other, err, self, ErrCPFTaken)
}

func takenUnlessSelf(other *User, err error, self uuid.UUID, taken error) error {
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check uniqueness: %w", err)
	}
	if other.ID != self {
		return taken
	}
	return nil
}
