package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskTemplate struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ServiceType       ServiceType `gorm:"type:service_type;not null;uniqueIndex:uq_task_template_ordering,priority:1" json:"serviceType"`
	Ordering          int         `gorm:"not null;uniqueIndex:uq_task_template_ordering,priority:2" json:"taskTemplateOrdering"`
	Description       string      `gorm:"type:text;not null" json:"taskTemplateDescription"`
	SuggestedEvidence string      `gorm:"type:text" json:"taskTemplateSuggestedEvidence"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (TaskTemplate) TableName() string {
	return "task_templates"
}

func (t *TaskTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
