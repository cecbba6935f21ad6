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

type Evidences struct {
	s *Store
}

func (r *Evidences) Create(ctx context.Context, evidence *model.TaskEvidence) error {
	if err := evidence.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if evidence.ID == uuid.Nil {
		evidence.ID = uuid.New()
	}
	if err := r.checkUnique(evidence); err != nil {
		return err
	}
	now := time.Now().UTC()
	evidence.CreatedAt = now
	evidence.UpdatedAt = now
	remember(ctx, r.s.evidences, evidence.ID)
	r.s.evidences[evidence.ID] = cloneEvidence(*evidence)
	return nil
}

func (r *Evidences) checkUnique(evidence *model.TaskEvidence) error {
	for id, existing := range r.s.evidences {
		if id != evidence.ID && existing.TaskID == evidence.TaskID && existing.Ordering == evidence.Ordering {
			return repository.NewDuplicateKeyError(repository.ConstraintEvidenceOrdering)
		}
	}
	return nil
}

func (r *Evidences) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskEvidence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.evidences[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneEvidence(existing)
	return &out, nil
}

func (r *Evidences) Update(ctx context.Context, evidence *model.TaskEvidence) error {
	if err := evidence.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.evidences[evidence.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	evidence.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.evidences, evidence.ID)
	r.s.evidences[evidence.ID] = cloneEvidence(*evidence)
	return nil
}

func (r *Evidences) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskEvidence, error) {
	return r.ListByTasks(ctx, []uuid.UUID{taskID})
}

func (r *Evidences) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.TaskEvidence, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}

	out := make([]model.TaskEvidence, 0)
	for _, evidence := range r.s.evidences {
		if wanted[evidence.TaskID] {
			out = append(out, cloneEvidence(evidence))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TaskID != out[j].TaskID {
			return out[i].TaskID.String() < out[j].TaskID.String()
		}
		return out[i].Ordering < out[j].Ordering
	})
	return out, nil
}

func (r *Evidences) MaxOrdering(ctx context.Context, taskID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	current := 0
	for _, evidence := range r.s.evidences {
		if evidence.TaskID == taskID && evidence.Ordering > current {
			current = evidence.Ordering
		}
	}
	return current, nil
}
