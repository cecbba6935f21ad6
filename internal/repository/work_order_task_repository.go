package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
)

type WorkOrderTaskRepository struct {
	db *gorm.DB
}

func NewWorkOrderTaskRepository(db *gorm.DB) *WorkOrderTaskRepository {
	return &WorkOrderTaskRepository{db: db}
}

func (r *WorkOrderTaskRepository) Create(ctx context.Context, task *model.WorkOrderTask) error {
	return translateError(conn(ctx, r.db).Create(task).Error)
}

func (r *WorkOrderTaskRepository) CreateBatch(ctx context.Context, tasks []model.WorkOrderTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return translateError(conn(ctx, r.db).Create(&tasks).Error)
}

func (r *WorkOrderTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrderTask, error) {
	var task model.WorkOrderTask
	err := conn(ctx, r.db).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *WorkOrderTaskRepository) Update(ctx context.Context, task *model.WorkOrderTask) error {
	return translateError(conn(ctx, r.db).Save(task).Error)
}

func (r *WorkOrderTaskRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderTask, error) {
	var tasks []model.WorkOrderTask
	err := conn(ctx, r.db).
		Where("work_order_id = ?", workOrderID).
		Order("ordering ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *WorkOrderTaskRepository) CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.WorkOrderTask{}).
		Where("work_order_id = ?", workOrderID).
		Count(&count).Error
	return count, err
}

func (r *WorkOrderTaskRepository) MaxOrdering(ctx context.Context, workOrderID uuid.UUID) (int, error) {
	var current int
	err := conn(ctx, r.db).Model(&model.WorkOrderTask{}).
		Where("work_order_id = ?", workOrderID).
		Select("COALESCE(MAX(ordering), 0)").
		Scan(&current).Error
	return current, err
}
