package repository

import (
	"context"

	"gorm.io/gorm"

	"workorder-service/internal/model"
)

// AuditLogRepository is append-only. Updates and deletes are also refused by
// a trigger on the table.
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry model.AuditEntry) error {
	row := entry.Row()
	return conn(ctx, r.db).Create(&row).Error
}

type AuditLogFilter struct {
	Model *string
	User  *string
	Limit int
}

func (r *AuditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	query := conn(ctx, r.db).Model(&model.AuditLog{})

	if filter.Model != nil {
		query = query.Where("audit_log_model = ?", *filter.Model)
	}
	if filter.User != nil {
		query = query.Where("audit_log_user = ?", *filter.User)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("audit_log_timestamp DESC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
