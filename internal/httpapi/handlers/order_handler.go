package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/services/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService is the subset of orders.Service used over HTTP.
type OrderService interface {
	Create(ctx context.Context, actor audit.Actor, in orders.CreateInput) (*orders.Order, error)
	List(ctx context.Context) ([]orders.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in orders.UpdateInput) (*orders.Order, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*orders.Order, error)
}

// OrderHandler serves /api/orders.
type OrderHandler struct {
	service OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.service.Create(r.Context(), actorFrom(r), orders.CreateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "order created", "order": order})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list, "count": len(list)})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	var req orderUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.service.Update(r.Context(), actorFrom(r), id, orders.UpdateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "order updated", "order": order})
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return
	}
	order, err := h.service.Delete(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "order deleted", "order": order})
}

type orderCreateRequest struct {
	ProductID    string  `json:"productId"`
	IgrejaID     string  `json:"igrejaId"`
	Quantity     *int    `json:"quantity"`
	CustomerName *string `json:"customerName"`
}

type orderUpdateRequest struct {
	Quantity     *int    `json:"quantity"`
	CustomerName *string `json:"customerName"`
}
