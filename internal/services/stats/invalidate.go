package stats

import (
	"context"

	"github.com/bengobox/church-admin/internal/audit"
)

// Auditor receives audit entries.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// InvalidatingAuditor forwards every entry and drops the cached summary when a
// church, product or stock row was written.
type InvalidatingAuditor struct {
	next  Auditor
	stats *Service
}

// NewInvalidatingAuditor wraps next.
func NewInvalidatingAuditor(next Auditor, stats *Service) *InvalidatingAuditor {
	return &InvalidatingAuditor{next: next, stats: stats}
}

func (a *InvalidatingAuditor) Record(ctx context.Context, entry audit.Entry) {
	a.next.Record(ctx, entry)
	if changesSummary(entry) {
		a.stats.Invalidate(ctx)
	}
}

func changesSummary(e audit.Entry) bool {
	switch e.Action {
	case audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete:
	default:
		return false
	}
	switch e.EntityType {
	case audit.EntityIgrejas, audit.EntityProducts, audit.EntityStock:
		return true
	}
	return false
}
