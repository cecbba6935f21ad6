package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

// AuditLogs only appends. There is no update or delete.
type AuditLogs struct {
	s *Store
}

func (r *AuditLogs) Append(ctx context.Context, entry model.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row := entry.Row()
	row.ID = uuid.New()
	r.s.auditLogs = append(r.s.auditLogs, row)
	onRollback(ctx, func() {
		for i := range r.s.auditLogs {
			if r.s.auditLogs[i].ID == row.ID {
				r.s.auditLogs = append(r.s.auditLogs[:i], r.s.auditLogs[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *AuditLogs) List(ctx context.Context, filter repository.AuditLogFilter) ([]model.AuditLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.AuditLog, 0)
	for i := len(r.s.auditLogs) - 1; i >= 0; i-- {
		row := r.s.auditLogs[i]
		if filter.Model != nil && row.Model != *filter.Model {
			continue
		}
		if filter.User != nil && row.User != *filter.User {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
