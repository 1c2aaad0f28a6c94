package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/services/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockService is the subset of stock.Service used over HTTP.
type StockService interface {
	Create(ctx context.Context, actor audit.Actor, in stock.CreateInput) (*stock.Item, error)
	List(ctx context.Context) ([]stock.Item, error)
	Get(ctx context.Context, id uuid.UUID) (*stock.Item, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, quantity *int) (*stock.Item, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*stock.Item, error)
}

// StockHandler serves /api/stock.
type StockHandler struct {
	service StockService
	logger  *zap.Logger
}

func NewStockHandler(service StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{service: service, logger: logger}
}

func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req stockCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.service.Create(r.Context(), actorFrom(r), stock.CreateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "stock created", "stock": item})
}

func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": list, "count": len(list)})
}

func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "stock")
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": item})
}

func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "stock")
	if !ok {
		return
	}
	var req stockUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.service.Update(r.Context(), actorFrom(r), id, req.Quantity)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "stock updated", "stock": item})
}

func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "stock")
	if !ok {
		return
	}
	item, err := h.service.Delete(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "stock deleted", "stock": item})
}

type stockCreateRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type stockUpdateRequest struct {
	Quantity *int `json:"quantity"`
}
