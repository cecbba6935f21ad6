package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workorder-service/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translateError(conn(ctx, r.db).Omit(clause.Associations).Create(user).Error)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User
	err := conn(ctx, r.db).Where(where, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update persists the user row only; login attempts are appended separately.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return translateError(conn(ctx, r.db).Omit(clause.Associations).Save(user).Error)
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.LoginAttempt{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.User{})
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type UserFilter struct {
	Role     *model.Role
	IsActive *bool
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	var users []model.User
	query := conn(ctx, r.db).Model(&model.User{})

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if err := query.Order("full_name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) ExistsByRole(ctx context.Context, role model.Role) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.User{}).Where("role = ?", role).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) AppendLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	return conn(ctx, r.db).Create(attempt).Error
}

func (r *UserRepository) ListLoginAttempts(ctx context.Context, userID uuid.UUID) ([]model.LoginAttempt, error) {
	var attempts []model.LoginAttempt
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
