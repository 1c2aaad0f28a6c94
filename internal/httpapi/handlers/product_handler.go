package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService is the subset of products.Service used over HTTP.
type ProductService interface {
	Create(ctx context.Context, actor audit.Actor, in products.CreateInput) (*products.Product, error)
	List(ctx context.Context) ([]products.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*products.Product, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in products.UpdateInput) (*products.Product, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*products.Product, error)
}

// ProductHandler serves /api/products.
type ProductHandler struct {
	service ProductService
	logger  *zap.Logger
}

func NewProductHandler(service ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := products.CreateInput{Price: req.Price}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Code != nil {
		in.Code = *req.Code
	}
	product, err := h.service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "product created", "product": product})
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": list, "count": len(list)})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.Update(r.Context(), actorFrom(r), id, products.UpdateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product updated", "product": product})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "product")
	if !ok {
		return
	}
	product, err := h.service.Delete(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product deleted", "product": product})
}

type productRequest struct {
	Name  *string `json:"name"`
	Code  *string `json:"code"`
	Price *int64  `json:"price"`
}
