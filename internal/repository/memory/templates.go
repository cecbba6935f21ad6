package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

type Templates struct {
	s *Store
}

func (r *Templates) Create(ctx context.Context, template *model.TaskTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	if err := r.checkUnique(template); err != nil {
		return err
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	remember(ctx, r.s.templates, template.ID)
	r.s.templates[template.ID] = *template
	return nil
}

func (r *Templates) checkUnique(template *model.TaskTemplate) error {
	for id, existing := range r.s.templates {
		if id != template.ID && existing.ServiceType == template.ServiceType && existing.Ordering == template.Ordering {
			return repository.NewDuplicateKeyError(repository.ConstraintTemplateOrdering)
		}
	}
	return nil
}

func (r *Templates) GetByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.templates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &existing, nil
}

func (r *Templates) Update(ctx context.Context, template *model.TaskTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[template.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(template); err != nil {
		return err
	}
	template.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.templates, template.ID)
	r.s.templates[template.ID] = *template
	return nil
}

func (r *Templates) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	remember(ctx, r.s.templates, id)
	delete(r.s.templates, id)
	return nil
}

func (r *Templates) List(ctx context.Context, filter repository.TaskTemplateFilter) ([]model.TaskTemplate, error) {
	return r.collect(func(t model.TaskTemplate) bool {
		return filter.ServiceType == nil || t.ServiceType == *filter.ServiceType
	}), nil
}

func (r *Templates) Search(ctx context.Context, term string) ([]model.TaskTemplate, error) {
	term = strings.TrimSpace(term)
	return r.collect(func(t model.TaskTemplate) bool {
		return containsFold(string(t.ServiceType), term) ||
			containsFold(t.Description, term) ||
			containsFold(t.SuggestedEvidence, term)
	}), nil
}

func (r *Templates) collect(match func(model.TaskTemplate) bool) []model.TaskTemplate {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.TaskTemplate, 0)
	for _, t := range r.s.templates {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServiceType != out[j].ServiceType {
			return out[i].ServiceType < out[j].ServiceType
		}
		return out[i].Ordering < out[j].Ordering
	})
	return out
}

func (r *Templates) MaxOrdering(ctx context.Context, serviceType model.ServiceType) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	current := 0
	for _, t := range r.s.templates {
		if t.ServiceType == serviceType && t.Ordering > current {
			current = t.Ordering
		}
	}
	return current, nil
}

func (r *Templates) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.templates)), nil
}
