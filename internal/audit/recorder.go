package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "church_admin",
	Subsystem: "audit",
	Name:      "records_total",
	Help:      "Audit record write attempts by outcome.",
}, []string{"outcome"})

// Recorder writes audit entries, logging failures but never interrupting the
// calling operation. The write is not part of the caller's transaction.
type Recorder struct {
	store  Store
	logger *zap.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// Record persists one audit entry. It returns nothing: invalid entries are
// dropped and store failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	defer func() {
		if p := recover(); p != nil {
			recordsTotal.WithLabelValues("failed").Inc()
			r.logger.Error("audit recorder panic", zap.Any("panic", p))
		}
	}()

	if err := validate(entry); err != nil {
		recordsTotal.WithLabelValues("dropped").Inc()
		r.logger.Warn("dropping invalid audit entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", string(entry.EntityType)),
			zap.Error(err),
		)
		return
	}

	rec := Record{
		ID:         uuid.New(),
		UserID:     entry.Actor.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   optional(entry.EntityID),
		OldData:    entry.OldData,
		NewData:    entry.NewData,
		IPAddress:  optional(entry.Actor.IPAddress),
		UserAgent:  optional(entry.Actor.UserAgent),
	}

	// The business write already happened; a client disconnect must not lose
	// the audit row.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.store.Insert(writeCtx, rec); err != nil {
		recordsTotal.WithLabelValues("failed").Inc()
		r.logger.Warn("failed to persist audit log",
			zap.String("action", string(rec.Action)),
			zap.String("entity_type", string(rec.EntityType)),
			zap.Stringp("entity_id", rec.EntityID),
			zap.Stringer("user_id", rec.UserID),
			zap.Error(err),
		)
		return
	}
	recordsTotal.WithLabelValues("written").Inc()
	r.logger.Debug("audit recorded",
		zap.String("action", string(rec.Action)),
		zap.String("entity_type", string(rec.EntityType)),
		zap.Stringer("user_id", rec.UserID),
	)
}

func validate(e Entry) error {
	if e.Actor.UserID == uuid.Nil {
		return fmt.Errorf("actor is required")
	}
	if !e.Action.Valid() {
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if !e.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", e.EntityType)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List returns audit records matching f, newest first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Record, error) {
	records, err := r.store.List(ctx, f.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}
