package handlers

import (
	"errors"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/httpapi/middleware"
	"github.com/bengobox/church-admin/internal/httpapi/render"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(w, r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	render.JSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	render.Error(w, status, code, message, details)
}

// handleError maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is logged and reported as 500 with the request id.
func handleError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		var details map[string]any
		if verr.Field != "" {
			details = map[string]any{"field": verr.Field}
		}
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error(), details)
	case errors.Is(err, errs.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", errs.Message(err), nil)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, errs.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", errs.Message(err), nil)
	default:
		reqID := chimiddleware.GetReqID(r.Context())
		logger.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error", map[string]any{"request_id": reqID})
	}
}

// actorFrom describes the caller for audit purposes. Public routes yield an
// actor without a user id.
func actorFrom(r *http.Request) audit.Actor {
	actor := audit.Actor{
		IPAddress: render.ClientIP(r),
		UserAgent: render.UserAgent(r),
	}
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		actor.UserID = identity.UserID
	}
	return actor
}

// pathID parses the {id} route parameter. A malformed id cannot name an
// existing row, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", entity+" not found", nil)
		return uuid.Nil, false
	}
	return id, true
}
