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

type Clients struct {
	s *Store
}

func (r *Clients) Create(ctx context.Context, client *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if err := r.checkUnique(client); err != nil {
		return err
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	remember(ctx, r.s.clients, client.ID)
	r.s.clients[client.ID] = cloneClient(*client)
	return nil
}

func (r *Clients) checkUnique(client *model.Client) error {
	for id, existing := range r.s.clients {
		if id == client.ID {
			continue
		}
		if existing.Email == client.Email {
			return repository.NewDuplicateKeyError(repository.ConstraintClientEmail)
		}
		if existing.CompanyName == client.CompanyName {
			return repository.NewDuplicateKeyError(repository.ConstraintClientCompany)
		}
	}
	return nil
}

func (r *Clients) GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneClient(existing)
	return &out, nil
}

func (r *Clients) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, existing := range r.s.clients {
		if existing.Email == email {
			out := cloneClient(existing)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Clients) Update(ctx context.Context, client *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[client.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(client); err != nil {
		return err
	}
	client.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.clients, client.ID)
	r.s.clients[client.ID] = cloneClient(*client)
	return nil
}

func (r *Clients) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.clients[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	remember(ctx, r.s.clients, id)
	delete(r.s.clients, id)
	return nil
}

func (r *Clients) List(ctx context.Context) ([]model.Client, error) {
	return r.collect(func(model.Client) bool { return true }), nil
}

func (r *Clients) Search(ctx context.Context, term string) ([]model.Client, error) {
	term = strings.TrimSpace(term)
	return r.collect(func(c model.Client) bool {
		return containsFold(c.Email, term) ||
			containsFold(c.CompanyName, term) ||
			containsFold(c.ContactPerson, term) ||
			containsFold(c.Phone, term) ||
			containsFold(c.Address, term)
	}), nil
}

func (r *Clients) collect(match func(model.Client) bool) []model.Client {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.Client, 0)
	for _, c := range r.s.clients {
		if match(c) {
			out = append(out, cloneClient(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out
}
