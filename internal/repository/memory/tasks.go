package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

type Tasks struct {
	s *Store
}

func (r *Tasks) Create(ctx context.Context, task *model.WorkOrderTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(ctx, task)
}

func (r *Tasks) CreateBatch(ctx context.Context, tasks []model.WorkOrderTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range tasks {
		for j := 0; j < i; j++ {
			if tasks[j].WorkOrderID == tasks[i].WorkOrderID && tasks[j].Ordering == tasks[i].Ordering {
				return repository.NewDuplicateKeyError(repository.ConstraintTaskOrdering)
			}
		}
		if err := r.checkUnique(&tasks[i]); err != nil {
			return err
		}
	}
	for i := range tasks {
		if err := r.insert(ctx, &tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Tasks) insert(ctx context.Context, task *model.WorkOrderTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := r.checkUnique(task); err != nil {
		return err
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	remember(ctx, r.s.tasks, task.ID)
	r.s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *Tasks) checkUnique(task *model.WorkOrderTask) error {
	for id, existing := range r.s.tasks {
		if id != task.ID && existing.WorkOrderID == task.WorkOrderID && existing.Ordering == task.Ordering {
			return repository.NewDuplicateKeyError(repository.ConstraintTaskOrdering)
		}
	}
	return nil
}

func (r *Tasks) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrderTask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneTask(existing)
	return &out, nil
}

func (r *Tasks) Update(ctx context.Context, task *model.WorkOrderTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(task); err != nil {
		return err
	}
	task.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.tasks, task.ID)
	r.s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *Tasks) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderTask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.WorkOrderTask, 0)
	for _, task := range r.s.tasks {
		if task.WorkOrderID == workOrderID {
			out = append(out, cloneTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordering < out[j].Ordering })
	return out, nil
}

func (r *Tasks) CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, task := range r.s.tasks {
		if task.WorkOrderID == workOrderID {
			count++
		}
	}
	return count, nil
}

func (r *Tasks) MaxOrdering(ctx context.Context, workOrderID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	current := 0
	for _, task := range r.s.tasks {
		if task.WorkOrderID == workOrderID && task.Ordering > current {
			current = task.Ordering
		}
	}
	return current, nil
}
