package handlers

import (
	"context"
	"net/http"

	"github.com/bengobox/church-admin/internal/services/stats"
	"go.uber.org/zap"
)

// StatsService produces the dashboard summary.
type StatsService interface {
	Summary(ctx context.Context) (stats.Summary, error)
}

// StatsHandler serves /api/stats.
type StatsHandler struct {
	service StatsService
	logger  *zap.Logger
}

func NewStatsHandler(service StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{service: service, logger: logger}
}

func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
