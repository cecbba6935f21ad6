package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
)

type TaskEvidenceRepository struct {
	db *gorm.DB
}

func NewTaskEvidenceRepository(db *gorm.DB) *TaskEvidenceRepository {
	return &TaskEvidenceRepository{db: db}
}

func (r *TaskEvidenceRepository) Create(ctx context.Context, evidence *model.TaskEvidence) error {
	return translateError(conn(ctx, r.db).Create(evidence).Error)
}

func (r *TaskEvidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskEvidence, error) {
	var evidence model.TaskEvidence
	err := conn(ctx, r.db).Where("id = ?", id).First(&evidence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &evidence, nil
}

func (r *TaskEvidenceRepository) Update(ctx context.Context, evidence *model.TaskEvidence) error {
	return translateError(conn(ctx, r.db).Save(evidence).Error)
}

func (r *TaskEvidenceRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskEvidence, error) {
	return r.ListByTasks(ctx, []uuid.UUID{taskID})
}

func (r *TaskEvidenceRepository) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.TaskEvidence, error) {
	if len(taskIDs) == 0 {
		return []model.TaskEvidence{}, nil
	}

	var evidences []model.TaskEvidence
	err := conn(ctx, r.db).
		Where("task_id IN ?", taskIDs).
		Order("task_id, ordering ASC").
		Find(&evidences).Error
	if err != nil {
		return nil, err
	}
	return evidences, nil
}

func (r *TaskEvidenceRepository) MaxOrdering(ctx context.Context, taskID uuid.UUID) (int, error) {
	var current int
	err := conn(ctx, r.db).Model(&model.TaskEvidence{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(MAX(ordering), 0)").
		Scan(&current).Error
	return current, err
}
