package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workorder-service/internal/model"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) Create(ctx context.Context, workOrder *model.WorkOrder) error {
	return translateError(conn(ctx, r.db).Create(workOrder).Error)
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	var workOrder model.WorkOrder
	err := conn(ctx, r.db).Where("id = ?", id).First(&workOrder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &workOrder, nil
}

func (r *WorkOrderRepository) Update(ctx context.Context, workOrder *model.WorkOrder) error {
	return translateError(conn(ctx, r.db).Save(workOrder).Error)
}

func (r *WorkOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&model.WorkOrder{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type WorkOrderFilter struct {
	SupervisorID *uuid.UUID
	TechnicianID *uuid.UUID
	ClientID     *uuid.UUID
	Status       *model.WorkOrderStatus
	Rejected     *bool
}

func (r *WorkOrderRepository) List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, error) {
	var workOrders []model.WorkOrder
	query := conn(ctx, r.db).Model(&model.WorkOrder{})

	if filter.SupervisorID != nil {
		query = query.Where("supervisor_id = ?", *filter.SupervisorID)
	}
	if filter.TechnicianID != nil {
		query = query.Where("assigned_technician_id = ?", *filter.TechnicianID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Rejected != nil {
		if *filter.Rejected {
			query = query.Where("reason_rejection IS NOT NULL AND reason_rejection <> ''")
		} else {
			query = query.Where("reason_rejection IS NULL OR reason_rejection = ''")
		}
	}

	if err := query.Order("created_at DESC").Find(&workOrders).Error; err != nil {
		return nil, err
	}

	return workOrders, nil
}

// NextSequence returns the next free sequence number within year.
func (r *WorkOrderRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var current int
	err := conn(ctx, r.db).Model(&model.WorkOrder{}).
		Where("number_year = ?", year).
		Select("COALESCE(MAX(number_sequence), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// ListScheduledForTechnician returns the technician's orders whose start falls in [from, to],
// excluding the given order.
func (r *WorkOrderRepository) ListScheduledForTechnician(ctx context.Context, technicianID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]model.WorkOrder, error) {
	var workOrders []model.WorkOrder
	query := conn(ctx, r.db).Model(&model.WorkOrder{}).
		Where("assigned_technician_id = ?", technicianID).
		Where("scheduled_date IS NOT NULL").
		Where("scheduled_date >= ? AND scheduled_date <= ?", from, to)

	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	if err := query.Order("scheduled_date ASC").Find(&workOrders).Error; err != nil {
		return nil, err
	}
	return workOrders, nil
}

func (r *WorkOrderRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.WorkOrder{}).
		Where("client_id = ?", clientID).
		Count(&count).Error
	return count, err
}

// CountByUser counts orders where the user is supervisor or assigned technician.
func (r *WorkOrderRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.WorkOrder{}).
		Where("supervisor_id = ? OR assigned_technician_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}
