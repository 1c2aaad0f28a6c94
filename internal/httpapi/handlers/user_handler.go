package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService is the subset of users.Service used over HTTP.
type UserService interface {
	Create(ctx context.Context, actor audit.Actor, in users.CreateInput) (*users.User, error)
	List(ctx context.Context) ([]users.User, error)
	Get(ctx context.Context, id uuid.UUID) (*users.User, error)
	Update(ctx context.Context, actor audit.Actor, id uuid.UUID, in users.UpdateInput) (*users.User, error)
	Delete(ctx context.Context, actor audit.Actor, id uuid.UUID) (*users.User, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := users.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		CPF:      req.CPF,
		Phone:    req.Phone,
	}
	if req.IgrejaID != nil && *req.IgrejaID != "" {
		igrejaID, err := uuid.Parse(*req.IgrejaID)
		if err != nil {
			handleError(w, r, h.logger, errs.Invalid("igrejaId", "must be a valid id"))
			return
		}
		in.IgrejaID = &igrejaID
	}

	user, err := h.service.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "user created", "user": user})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list, "count": len(list)})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Update(r.Context(), actorFrom(r), id, users.UpdateInput(req))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user updated", "user": user})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	user, err := h.service.Delete(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deleted", "user": user})
}

type userCreateRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	CPF      string  `json:"cpf"`
	Phone    string  `json:"phone"`
	IgrejaID *string `json:"igrejaId"`
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	CPF      *string `json:"cpf"`
	Phone    *string `json:"phone"`
}
