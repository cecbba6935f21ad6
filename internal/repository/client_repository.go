package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, client *model.Client) error {
	return translateError(conn(ctx, r.db).Create(client).Error)
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*model.Client, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *ClientRepository) first(ctx context.Context, where string, arg any) (*model.Client, error) {
	var client model.Client
	err := conn(ctx, r.db).Where(where, arg).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *model.Client) error {
	return translateError(conn(ctx, r.db).Save(client).Error)
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&model.Client{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ClientRepository) List(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := conn(ctx, r.db).Order("company_name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *ClientRepository) Search(ctx context.Context, term string) ([]model.Client, error) {
	var clients []model.Client
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"

	err := conn(ctx, r.db).
		Where("email ILIKE ? OR company_name ILIKE ? OR contact_person ILIKE ? OR phone ILIKE ? OR address ILIKE ?",
			pattern, pattern, pattern, pattern, pattern).
		Order("company_name ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
