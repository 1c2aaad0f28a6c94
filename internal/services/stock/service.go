package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/google/uuid"
)

// ErrAlreadyStocked is returned when the product already has a stock row.
var ErrAlreadyStocked = errs.Conflict("stock already exists for this product, update it instead")

// Item is the stock level of one product.
type Item struct {
	ID        uuid.UUID     `json:"id"`
	ProductID uuid.UUID     `json:"productId"`
	Quantity  int           `json:"quantity"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Product   *products.Ref `json:"product,omitempty"`
}

// Repository persists stock rows. Reads join the product summary.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id uuid.UUID) (*Item, error)
	GetByProduct(ctx context.Context, productID uuid.UUID) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductFinder resolves products referenced by stock rows.
type ProductFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*products.Product, error)
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service manages stock levels.
type Service struct {
	repo     Repository
	products ProductFinder
	auditor  Auditor
}

// New constructs a Service.
func New(repo Repository, products ProductFinder, auditor Auditor) *Service {
	return &Service{repo: repo, products: products, auditor: auditor}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	ProductID string
	Quantity  *int
}

// Create opens the stock row of a product.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*Item, error) {
	if in.ProductID == "" || in.Quantity == nil {
		return nil, errs.Invalid("", "productId and quantity are required")
	}
	if *in.Quantity < 0 {
		return nil, errs.Invalid("quantity", "must be zero or positive")
	}
	productID, err := uuid.Parse(in.ProductID)
	if err != nil {
		return nil, errs.Invalid("productId", "must be a valid id")
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.GetByProduct(ctx, productID)
	switch {
	case err == nil:
		return nil, ErrAlreadyStocked
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("check stock: %w", err)
	}

	item := &Item{ProductID: productID, Quantity: *in.Quantity}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create stock: %w", err)
	}
	item.Product = product.Ref()

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityStock,
		EntityID:   item.ID.String(),
		NewData:    snapshot(item),
	})
	return item, nil
}

// List returns every stock row with its product.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return items, nil
}

// Get returns one stock row.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.Get(ctx, id)
}

// Update sets the quantity of a stock row.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, quantity *int) (*Item, error) {
	if quantity == nil {
		return nil, errs.Invalid("quantity", "is required")
	}
	if *quantity < 0 {
		return nil, errs.Invalid("quantity", "must be zero or positive")
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing
	updated.Quantity = *quantity
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	updated.Product = existing.Product

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityStock,
		EntityID:   id.String(),
		OldData:    snapshot(existing),
		NewData:    snapshot(&updated),
	})
	return &updated, nil
}

// Delete removes a stock row.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*Item, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete stock: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionDelete,
		EntityType: audit.EntityStock,
		EntityID:   id.String(),
		OldData:    snapshot(existing),
	})
	return existing, nil
}

// snapshot flattens the product summary to productName.
func snapshot(item *Item) map[string]any {
	flat := *item
	flat.Product = nil
	var name any
	if item.Product != nil {
		name = item.Product.Name
	}
	return audit.With(audit.Snapshot(&flat), map[string]any{"productName": name})
}
