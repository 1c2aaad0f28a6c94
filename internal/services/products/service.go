package products

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

// ErrCodeTaken is returned when another product already uses the code.
var ErrCodeTaken = errs.Conflict("product code already in use")

// Product is a catalogue item. Price is in cents.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service implements product CRUD with audit recording.
type Service struct {
	repo    Repository
	auditor Auditor
}

// New constructs a Service.
func New(repo Repository, auditor Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	Name  string
	Code  string
	Price *int64
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Name  *string
	Code  *string
	Price *int64
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" || in.Price == nil {
		return nil, errs.Invalid("", "name, code and price are required")
	}
	if *in.Price < 0 {
		return nil, errs.Invalid("price", "must be zero or positive")
	}

	if err := s.ensureCodeFree(ctx, code, uuid.Nil); err != nil {
		return nil, err
	}

	p := &Product{Name: name, Code: code, Price: *in.Price}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityProducts,
		EntityID:   p.ID.String(),
		NewData:    audit.Snapshot(p),
	})
	return p, nil
}

// List returns every product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// Update applies the provided fields.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in UpdateInput) (*Product, error) {
	if in.Name == nil && in.Code == nil && in.Price == nil {
		return nil, errs.Invalid("", "provide at least one field to update (name, code or price)")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, errs.Invalid("price", "must be zero or positive")
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
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			return nil, errs.Invalid("code", "must not be empty")
		}
		if code != existing.Code {
			if err := s.ensureCodeFree(ctx, code, id); err != nil {
				return nil, err
			}
		}
		updated.Code = code
	}
	if in.Price != nil {
		updated.Price = *in.Price
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityProducts,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
		NewData:    audit.Snapshot(&updated),
	})
	return &updated, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionDelete,
		EntityType: audit.EntityProducts,
		EntityID:   id.String(),
		OldData:    audit.Snapshot(existing),
	})
	return existing, nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code string, self uuid.UUID) error {
	other, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check product code: %w", err)
	}
	if other.ID != self {
		return ErrCodeTaken
	}
	return nil
}

// Ref is the product summary embedded in stock and order responses.
type Ref struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Code  string    `json:"code"`
	Price int64     `json:"price"`
}

// Ref returns the summary of p.
func (p *Product) Ref() *Ref {
	return &Ref{ID: p.ID, Name: p.Name, Code: p.Code, Price: p.Price}
}
