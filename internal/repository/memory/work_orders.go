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

type WorkOrders struct {
	s *Store
}

func (r *WorkOrders) Create(ctx context.Context, workOrder *model.WorkOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if workOrder.ID == uuid.Nil {
		workOrder.ID = uuid.New()
	}
	if err := r.checkUnique(workOrder); err != nil {
		return err
	}

	now := time.Now().UTC()
	workOrder.CreatedAt = now
	workOrder.UpdatedAt = now
	remember(ctx, r.s.workOrders, workOrder.ID)
	r.s.workOrders[workOrder.ID] = cloneWorkOrder(*workOrder)
	return nil
}

func (r *WorkOrders) checkUnique(workOrder *model.WorkOrder) error {
	for id, existing := range r.s.workOrders {
		if id == workOrder.ID {
			continue
		}
		if existing.NumberYear == workOrder.NumberYear && existing.NumberSequence == workOrder.NumberSequence {
			return repository.NewDuplicateKeyError(repository.ConstraintWorkOrderSequence)
		}
		if existing.Number == workOrder.Number {
			return repository.NewDuplicateKeyError(repository.ConstraintWorkOrderNumber)
		}
	}
	return nil
}

func (r *WorkOrders) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.workOrders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneWorkOrder(existing)
	return &out, nil
}

func (r *WorkOrders) Update(ctx context.Context, workOrder *model.WorkOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.workOrders[workOrder.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(workOrder); err != nil {
		return err
	}
	workOrder.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.workOrders, workOrder.ID)
	r.s.workOrders[workOrder.ID] = cloneWorkOrder(*workOrder)
	return nil
}

func (r *WorkOrders) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.workOrders[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	remember(ctx, r.s.workOrders, id)
	delete(r.s.workOrders, id)
	return nil
}

func (r *WorkOrders) List(ctx context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.WorkOrder, 0)
	for _, wo := range r.s.workOrders {
		if filter.SupervisorID != nil && wo.SupervisorID != *filter.SupervisorID {
			continue
		}
		if filter.TechnicianID != nil && !wo.IsAssignedTo(*filter.TechnicianID) {
			continue
		}
		if filter.ClientID != nil && wo.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && wo.Status != *filter.Status {
			continue
		}
		if filter.Rejected != nil && wo.IsRejected() != *filter.Rejected {
			continue
		}
		out = append(out, cloneWorkOrder(wo))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if out[i].NumberYear != out[j].NumberYear {
			return out[i].NumberYear > out[j].NumberYear
		}
		return out[i].NumberSequence > out[j].NumberSequence
	})
	return out, nil
}

func (r *WorkOrders) NextSequence(ctx context.Context, year int) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	current := 0
	for _, wo := range r.s.workOrders {
		if wo.NumberYear == year && wo.NumberSequence > current {
			current = wo.NumberSequence
		}
	}
	return current + 1, nil
}

func (r *WorkOrders) ListScheduledForTechnician(ctx context.Context, technicianID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]model.WorkOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.WorkOrder, 0)
	for _, wo := range r.s.workOrders {
		if !wo.IsAssignedTo(technicianID) || wo.ScheduledDate == nil {
			continue
		}
		if excludeID != nil && wo.ID == *excludeID {
			continue
		}
		if wo.ScheduledDate.Before(from) || wo.ScheduledDate.After(to) {
			continue
		}
		out = append(out, cloneWorkOrder(wo))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledDate.Before(*out[j].ScheduledDate)
	})
	return out, nil
}

func (r *WorkOrders) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, wo := range r.s.workOrders {
		if wo.ClientID == clientID {
			count++
		}
	}
	return count, nil
}

func (r *WorkOrders) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, wo := range r.s.workOrders {
		if wo.SupervisorID == userID || wo.IsAssignedTo(userID) {
			count++
		}
	}
	return count, nil
}
