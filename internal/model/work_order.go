package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceType string

const (
	ServiceTypeInspection   ServiceType = "Inspection"
	ServiceTypeInstallation ServiceType = "Installation"
	ServiceTypeMaintenance  ServiceType = "Maintenance"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeInspection, ServiceTypeInstallation, ServiceTypeMaintenance:
		return true
	}
	return false
}

type WorkOrderStatus string

const (
	WorkOrderStatusUnassigned  WorkOrderStatus = "Unassigned"
	WorkOrderStatusAssigned    WorkOrderStatus = "Assigned"
	WorkOrderStatusInProgress  WorkOrderStatus = "In Progress"
	WorkOrderStatusUnderReview WorkOrderStatus = "Under Review"
	WorkOrderStatusApproved    WorkOrderStatus = "Approved"
)

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderStatusUnassigned, WorkOrderStatusAssigned, WorkOrderStatusInProgress,
		WorkOrderStatusUnderReview, WorkOrderStatusApproved:
		return true
	}
	return false
}

const (
	MinEstimatedDuration     = 0.25
	MaxEstimatedDuration     = 8.0
	DefaultEstimatedDuration = 1.0
)

type WorkOrder struct {
	ID                   uuid.UUID                    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Number               string                       `gorm:"column:work_order_number;type:varchar(16);not null;uniqueIndex" json:"workOrderNumber"`
	NumberYear           int                          `gorm:"not null" json:"-"`
	NumberSequence       int                          `gorm:"not null" json:"-"`
	SupervisorID         uuid.UUID                    `gorm:"type:uuid;not null;index" json:"workOrderSupervisor"`
	ClientID             uuid.UUID                    `gorm:"type:uuid;not null;index" json:"clientId"`
	Description          string                       `gorm:"type:text;not null" json:"workOrderDescription"`
	ServiceType          ServiceType                  `gorm:"type:service_type;not null" json:"serviceType"`
	Status               WorkOrderStatus              `gorm:"type:work_order_status;not null;default:'Unassigned'" json:"workOrderStatus"`
	ScheduledDate        *time.Time                   `json:"workOrderScheduledDate"`
	EstimatedDuration    float64                      `gorm:"not null;default:1" json:"workOrderEstimatedDuration"`
	AssignedTechnicianID *uuid.UUID                   `gorm:"type:uuid;index" json:"workOrderAssignedTechnician"`
	ReasonRejection      *string                      `gorm:"type:text" json:"workOrderReasonRejection"`
	Address              string                       `gorm:"type:varchar(255)" json:"workOrderAddress"`
	ContactPerson        string                       `gorm:"type:varchar(100)" json:"workOrderContactPerson"`
	Phone                string                       `gorm:"type:varchar(20)" json:"workOrderPhone"`
	ClientEmail          string                       `gorm:"type:varchar(255)" json:"workOrderClientEmail"`
	Location             datatypes.JSONType[GeoPoint] `gorm:"type:jsonb" json:"workOrderLocation"`
	CreatedAt            time.Time                    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time                    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// FormatWorkOrderNumber renders the NNNN-YYYY number of a work order.
func FormatWorkOrderNumber(sequence, year int) string {
	return fmt.Sprintf("%04d-%d", sequence, year)
}

// IsSchedulable reports whether technician, date and duration are all set.
func (w *WorkOrder) IsSchedulable() bool {
	return w.AssignedTechnicianID != nil && w.ScheduledDate != nil && w.EstimatedDuration > 0
}

func (w *WorkOrder) IsRejected() bool {
	return w.ReasonRejection != nil && *w.ReasonRejection != ""
}

func (w *WorkOrder) IsAssignedTo(userID uuid.UUID) bool {
	return w.AssignedTechnicianID != nil && *w.AssignedTechnicianID == userID
}

// Interval returns the booked window [start, start+duration).
func (w *WorkOrder) Interval() (start, end time.Time, ok bool) {
	if w.ScheduledDate == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *w.ScheduledDate
	end = start.Add(DurationHours(w.EstimatedDuration))
	return start, end, true
}

func DurationHours(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
