package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditReader lists audit records.
type AuditReader interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Record, error)
}

// AuditHandler serves /api/audit.
type AuditHandler struct {
	reader AuditReader
	logger *zap.Logger
}

func NewAuditHandler(reader AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{reader: reader, logger: logger}
}

// List returns audit records newest first. Filters combine with AND.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	filter = filter.Normalize()

	logs, err := h.reader.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if logs == nil {
		logs = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   logs,
		"count":  len(logs),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parseAuditFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	var f audit.Filter

	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, errs.Invalid("userId", "must be a valid id")
		}
		f.UserID = &id
	}
	if raw := q.Get("action"); raw != "" {
		f.Action = audit.Action(raw)
		if !f.Action.Valid() {
			return f, errs.Invalid("action", "unknown action")
		}
	}
	if raw := q.Get("entityType"); raw != "" {
		f.EntityType = audit.EntityType(raw)
		if !f.EntityType.Valid() {
			return f, errs.Invalid("entityType", "unknown entity type")
		}
	}
	f.EntityID = q.Get("entityId")

	var err error
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Invalid(field, "must be a non-negative integer")
	}
	return n, nil
}
