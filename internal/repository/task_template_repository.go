package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
)

type TaskTemplateRepository struct {
	db *gorm.DB
}

func NewTaskTemplateRepository(db *gorm.DB) *TaskTemplateRepository {
	return &TaskTemplateRepository{db: db}
}

func (r *TaskTemplateRepository) Create(ctx context.Context, template *model.TaskTemplate) error {
	return translateError(conn(ctx, r.db).Create(template).Error)
}

func (r *TaskTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error) {
	var template model.TaskTemplate
	err := conn(ctx, r.db).Where("id = ?", id).First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &template, nil
}

func (r *TaskTemplateRepository) Update(ctx context.Context, template *model.TaskTemplate) error {
	return translateError(conn(ctx, r.db).Save(template).Error)
}

func (r *TaskTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&model.TaskTemplate{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type TaskTemplateFilter struct {
	ServiceType *model.ServiceType
}

// List returns templates ordered by service type, then ordering.
func (r *TaskTemplateRepository) List(ctx context.Context, filter TaskTemplateFilter) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	query := conn(ctx, r.db).Model(&model.TaskTemplate{})

	if filter.ServiceType != nil {
		query = query.Where("service_type = ?", *filter.ServiceType)
	}

	if err := query.Order("service_type ASC, ordering ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// Search matches term case-insensitively against service type, description and suggested evidence.
func (r *TaskTemplateRepository) Search(ctx context.Context, term string) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"

	err := conn(ctx, r.db).
		Where("service_type::text ILIKE ? OR description ILIKE ? OR suggested_evidence ILIKE ?", pattern, pattern, pattern).
		Order("service_type ASC, ordering ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TaskTemplateRepository) MaxOrdering(ctx context.Context, serviceType model.ServiceType) (int, error) {
	var current int
	err := conn(ctx, r.db).Model(&model.TaskTemplate{}).
		Where("service_type = ?", serviceType).
		Select("COALESCE(MAX(ordering), 0)").
		Scan(&current).Error
	return current, err
}

func (r *TaskTemplateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.TaskTemplate{}).Count(&count).Error
	return count, err
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
