package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusApproved   TaskStatus = "Approved"
	TaskStatusRejected   TaskStatus = "Rejected"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusApproved, TaskStatusRejected:
		return true
	}
	return false
}

type WorkOrderTask struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	WorkOrderID         uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uq_work_order_task_ordering,priority:1" json:"workOrderId"`
	Ordering            int        `gorm:"not null;uniqueIndex:uq_work_order_task_ordering,priority:2" json:"workOrderTaskOrdering"`
	Description         string     `gorm:"type:text;not null" json:"workOrderTaskDescription"`
	TechnicianID        *uuid.UUID `gorm:"type:uuid;index" json:"workOrderTaskTechnicianRecord"`
	Status              TaskStatus `gorm:"type:task_status;not null;default:'Pending'" json:"workOrderTaskStatus"`
	ObservationByReject *string    `gorm:"type:text" json:"workOrderTaskObservationByReject"`
	UpdateDate          *time.Time `json:"workOrderTaskUpdateDate"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (WorkOrderTask) TableName() string {
	return "work_order_tasks"
}

func (t *WorkOrderTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
