// Package churches manages the igrejas that own users and orders.
package churches

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

// ErrCNPJTaken is returned when another church already uses the CNPJ.
var ErrCNPJTaken = errs.Conflict("cnpj already registered")

// Church is an igreja record.
type Church struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	CNPJ         *string   `json:"cnpj"`
	Street       string    `json:"street"`
	Number       string    `json:"number"`
	Neighborhood string    `json:"neighborhood"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zipCode"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Repository persists churches.
type Repository interface {
	Create(ctx context.Context, c *Church) error
	Get(ctx context.Context, id uuid.UUID) (*Church, error)
	GetByCNPJ(ctx context.Context, cnpj string) (*Church, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]Church, error)
	Update(ctx context.Context, c *Church) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service implements church CRUD with audit recording.
type Service struct {
	repo    Repository
	auditor Auditor
}

// New constructs a Service.
func New(repo Repository, auditor Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// Address groups the postal fields of a church.
type Address struct {
	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
	ZipCode      string
}

// CreateInput is the payload for Create. Every field is required.
type CreateInput struct {
	Name string
	CNPJ string
	Address
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Name         *string
	CNPJ         *string
	Street       *string
	Number       *string
	Neighborhood *string
	City         *string
	State        *string
	ZipCode      *string
}

func (in UpdateInput) empty() bool {
	return in.Name == nil && in.CNPJ == nil && in.Street == nil && in.Number == nil &&
		in.Neighborhood == nil && in.City == nil && in.State == nil && in.ZipCode == nil
}

// Create validates and stores a church.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*Church, error) {
	c := &Church{
		Name:         strings.TrimSpace(in.Name),
		Street:       strings.TrimSpace(in.Street),
		Number:       strings.TrimSpace(in.Number),
		Neighborhood: strings.TrimSpace(in.Neighborhood),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		ZipCode:      strings.TrimSpace(in.ZipCode),
	}
	for _, v := range []string{c.Name, in.CNPJ, c.Street, c.Number, c.Neighborhood, c.City, c.State, c.ZipCode} {
		if v == "" {
			return nil, errs.Invalid("", "all fields are required")
		}
	}
	cnpj, err := FormatCNPJ(in.CNPJ)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCNPJFree(ctx, cnpj, uuid.Nil); err != nil {
		return nil, err
	}
	c.CNPJ = &cnpj

	if c.Slug, err = UniqueSlug(ctx, s.repo, c.Name); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create church: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityIgrejas,
		EntityID:   c.ID.String(),
		NewData:    audit.Snapshot(c),
	})
	return c, nil
}

// List returns every church.
func (s *Service) List(ctx context.Context) ([]Church, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list churches: %w", err)
	}
	return items, nil
}

// Get returns one church and records the view.
func (s *Service) Get(ctx context.Context, actor audit.Actor, id uuid.UUID) (*Church, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionView,
		EntityType: audit.EntityIgrejas,
		EntityID:   id.String(),
	})
	return c, nil
}

// Find returns one church without recording a view.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*Church, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the provided fields. The slug is kept stable.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in UpdateInput) (*Church, error) {
	if in.empty() {
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
	if in.CNPJ != nil {
		cnpj, err := FormatCNPJ(*in.CNPJ)
		if err != nil {
			return nil, err
		}
		if existing.CNPJ == nil || *existing.CNPJ != cnpj {
			if err := s.ensureCNPJFree(ctx, cnpj, id); err != nil {
				return nil, err
			}
		}
		updated.CNPJ = &cnpj
	}
	assign(&updated.Street, in.Street)
	assign(&updated.Number, in.Number)
	assign(&updated.Neighborhood, in.Neighborhood)
	assign(&updated.City, in.City)
	assign(&updated.State, in.State)
	assign(&updated.ZipCode, in.ZipCode)

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update church: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityIgrejas,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
		NewData:    audit.Snapshot(&updated),
	})
	return &updated, nil
}

// Delete removes a church. Its orders go with it and its users are detached.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*Church, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete church: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionDelete,
		EntityType: audit.EntityIgrejas,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
	})
	return existing, nil
}

// SlugChecker reports whether a slug is already used.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// UniqueSlug derives a slug from name, adding a short suffix when it is taken.
func UniqueSlug(ctx context.Context, repo SlugChecker, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for attempt := 0; attempt < 5; attempt++ {
		taken, err := repo.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + uuid.NewString()[:8]
	}
	return "", errs.Conflict("could not derive a unique slug")
}

func (s *Service) ensureCNPJFree(ctx context.Context, cnpj string, self uuid.UUID) error {
	other, err := s.repo.GetByCNPJ(ctx, cnpj)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check cnpj: %w", err)
	}
	if other.ID != self {
		return ErrCNPJTaken
	}
	return nil
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
