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

type Users struct {
	s *Store
}

func (r *Users) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	remember(ctx, r.s.users, user.ID)
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *Users) checkUnique(user *model.User) error {
	for id, existing := range r.s.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return repository.NewDuplicateKeyError(repository.ConstraintUserEmail)
		}
		if existing.FullName == user.FullName {
			return repository.NewDuplicateKeyError(repository.ConstraintUserFullName)
		}
	}
	return nil
}

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	existing, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneUser(existing)
	return &out, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, existing := range r.s.users {
		if existing.Email == email {
			out := cloneUser(existing)
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Users) Update(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	remember(ctx, r.s.users, user.ID)
	r.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	remember(ctx, r.s.users, id)
	delete(r.s.users, id)
	remember(ctx, r.s.loginAttempts, id)
	delete(r.s.loginAttempts, id)
	return nil
}

func (r *Users) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]model.User, 0)
	for _, u := range r.s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (r *Users) ExistsByRole(ctx context.Context, role model.Role) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *Users) AppendLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[attempt.UserID]; !ok {
		return repository.ErrForeignKey
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	stored := *attempt
	stored.Cause = cloneString(attempt.Cause)
	stored.Token = cloneString(attempt.Token)
	remember(ctx, r.s.loginAttempts, attempt.UserID)
	r.s.loginAttempts[attempt.UserID] = append(r.s.loginAttempts[attempt.UserID], stored)
	return nil
}

func (r *Users) ListLoginAttempts(ctx context.Context, userID uuid.UUID) ([]model.LoginAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	attempts := r.s.loginAttempts[userID]
	out := make([]model.LoginAttempt, len(attempts))
	for i := range attempts {
		out[len(attempts)-1-i] = attempts[i]
	}
	return out, nil
}
