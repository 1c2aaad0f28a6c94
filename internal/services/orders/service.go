// Package orders records product orders placed by churches.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/google/uuid"
)

// ChurchRef is the church summary embedded in order responses.
type ChurchRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	CNPJ  *string   `json:"cnpj"`
	City  string    `json:"city"`
	State string    `json:"state"`
}

// Order is a quantity of one product requested by one church. Total is in
// cents and fixed from the product price when the quantity is set.
type Order struct {
	ID           uuid.UUID     `json:"id"`
	ProductID    uuid.UUID     `json:"productId"`
	IgrejaID     uuid.UUID     `json:"igrejaId"`
	Quantity     int           `json:"quantity"`
	CustomerName *string       `json:"customerName"`
	Total        int64         `json:"total"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Product      *products.Ref `json:"product,omitempty"`
	Igreja       *ChurchRef    `json:"igreja,omitempty"`
}

// Repository persists orders. Reads join the product and church summaries.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductFinder resolves ordered products.
type ProductFinder interface {
	Get(ctx context.Context, id uuid.UUID) (*products.Product, error)
}

// ChurchFinder resolves ordering churches.
type ChurchFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*churches.Church, error)
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service manages orders.
type Service struct {
	repo     Repository
	products ProductFinder
	churches ChurchFinder
	auditor  Auditor
}

// New constructs a Service.
func New(repo Repository, products ProductFinder, churches ChurchFinder, auditor Auditor) *Service {
	return &Service{repo: repo, products: products, churches: churches, auditor: auditor}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	ProductID    string
	IgrejaID     string
	Quantity     *int
	CustomerName *string
}

// UpdateInput carries optional fields; nil means unchanged.
type UpdateInput struct {
	Quantity     *int
	CustomerName *string
}

// Create validates references and stores an order.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in CreateInput) (*Order, error) {
	if in.ProductID == "" || in.IgrejaID == "" || in.Quantity == nil {
		return nil, errs.Invalid("", "productId, quantity and igrejaId are required")
	}
	if *in.Quantity <= 0 {
		return nil, errs.Invalid("quantity", "must be greater than zero")
	}
	productID, err := uuid.Parse(in.ProductID)
	if err != nil {
		return nil, errs.Invalid("productId", "must be a valid id")
	}
	igrejaID, err := uuid.Parse(in.IgrejaID)
	if err != nil {
		return nil, errs.Invalid("igrejaId", "must be a valid id")
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	church, err := s.churches.Find(ctx, igrejaID)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ProductID:    productID,
		IgrejaID:     igrejaID,
		Quantity:     *in.Quantity,
		CustomerName: trimmed(in.CustomerName),
		Total:        product.Price * int64(*in.Quantity),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	o.Product = product.Ref()
	o.Igreja = refOf(church)

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionCreate,
		EntityType: audit.EntityOrders,
		EntityID:   o.ID.String(),
		NewData:    snapshot(o),
	})
	return o, nil
}

// List returns every order with its product and church.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return items, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// Update changes the quantity or customer name. A new quantity reprices the
// order at the current product price.
func (s *Service) Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in UpdateInput) (*Order, error) {
	if in.Quantity == nil && in.CustomerName == nil {
		return nil, errs.Invalid("", "provide at least one field to update (quantity or customerName)")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, errs.Invalid("quantity", "must be greater than zero")
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing

	if in.Quantity != nil {
		product, err := s.products.Get(ctx, existing.ProductID)
		if err != nil {
			return nil, err
		}
		updated.Quantity = *in.Quantity
		updated.Total = product.Price * int64(*in.Quantity)
		updated.Product = product.Ref()
	}
	if in.CustomerName != nil {
		updated.CustomerName = trimmed(in.CustomerName)
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityOrders,
		EntityID:   id.String(),
		OldData:    snapshot(existing),
		NewData:    snapshot(&updated),
	})
	return &updated, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:      actor,
		Action:     audit.ActionDelete,
		EntityType: audit.EntityOrders,
		EntityID:   id.String(),
		OldData:    snapshot(existing),
	})
	return existing, nil
}

func refOf(c *churches.Church) *ChurchRef {
	return &ChurchRef{ID: c.ID, Name: c.Name, CNPJ: c.CNPJ, City: c.City, State: c.State}
}

// snapshot flattens the embedded summaries to productName and igrejaName.
func snapshot(o *Order) map[string]any {
	flat := *o
	flat.Product, flat.Igreja = nil, nil
	extra := map[string]any{"productName": nil, "igrejaName": nil}
	if o.Product != nil {
		extra["productName"] = o.Product.Name
	}
	if o.Igreja != nil {
		extra["igrejaName"] = o.Igreja.Name
	}
	return audit.With(audit.Snapshot(&flat), extra)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
