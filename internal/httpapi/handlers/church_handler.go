package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChurchService is the subset of churches.Service used over HTTP.
type ChurchService interface {
	Create(ctx context.Context, actor audit.Actor, in churches.CreateInput) (*churches.Church, error)
	List(ctx context.Context) ([]churches.Church, error)
	Get(ctx context.Context, actor audit.Actor, id uuid.UUID) (*churches.Church, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in churches.UpdateInput) (*churches.Church, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*churches.Church, error)
}

// ChurchHandler serves /api/igrejas.
type ChurchHandler struct {
	service ChurchService
	logger  *zap.Logger
}

func NewChurchHandler(service ChurchService, logger *zap.Logger) *ChurchHandler {
	return &ChurchHandler{service: service, logger: logger}
}

func (h *ChurchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req churchCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	church, err := h.service.Create(r.Context(), actorFrom(r), churches.CreateInput{
		Name: req.Name,
		CNPJ: req.CNPJ,
		Address: churches.Address{
			Street:       req.Street,
			Number:       req.Number,
			Neighborhood: req.Neighborhood,
			City:         req.City,
			State:        req.State,
			ZipCode:      req.ZipCode,
		},
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "church created", "igreja": church})
}

func (h *ChurchHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"igrejas": list, "count": len(list)})
}

// Get returns one church. The read itself is audited as VIEW.
func (h *ChurchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "church")
	if !ok {
		return
	}
	church, err := h.service.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"igreja": church})
}

func (h *ChurchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "church")
	if !ok {
		return
	}
	var req churchUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	church, err := h.service.Update(r.Context(), actorFrom(r), id, churches.UpdateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "church updated", "igreja": church})
}

func (h *ChurchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "church")
	if !ok {
		return
	}
	church, err := h.service.Delete(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "church deleted", "igreja": church})
}

type churchCreateRequest struct {
	Name         string `json:"name"`
	CNPJ         string `json:"cnpj"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

type churchUpdateRequest struct {
	Name         *string `json:"name"`
	CNPJ         *string `json:"cnpj"`
	Street       *string `json:"street"`
	Number       *string `json:"number"`
	Neighborhood *string `json:"neighborhood"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ZipCode      *string `json:"zipCode"`
}
