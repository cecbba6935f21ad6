package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EvidenceType string

const (
	EvidenceTypePhoto EvidenceType = "Foto"
	EvidenceTypeVideo EvidenceType = "Video"
	EvidenceTypeText  EvidenceType = "Texto"
	EvidenceTypeAudio EvidenceType = "Audio"
	EvidenceTypeFile  EvidenceType = "File"
)

func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceTypePhoto, EvidenceTypeVideo, EvidenceTypeText, EvidenceTypeAudio, EvidenceTypeFile:
		return true
	}
	return false
}

type EvidenceStatus string

const (
	EvidenceStatusPending   EvidenceStatus = "Pending"
	EvidenceStatusCompleted EvidenceStatus = "Completed"
	EvidenceStatusApproved  EvidenceStatus = "Approved"
	EvidenceStatusRejected  EvidenceStatus = "Rejected"
)

func (s EvidenceStatus) Valid() bool {
	switch s {
	case EvidenceStatusPending, EvidenceStatusCompleted, EvidenceStatusApproved, EvidenceStatusRejected:
		return true
	}
	return false
}

var ErrSupervisorObservationRequired = errors.New("supervisor observation is required when evidence is rejected")

type TaskEvidence struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	TaskID                uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:uq_task_evidence_ordering,priority:1" json:"workOrderTaskId"`
	Ordering              int            `gorm:"not null;uniqueIndex:uq_task_evidence_ordering,priority:2" json:"taskEvidenceOrdering"`
	Type                  EvidenceType   `gorm:"type:evidence_type;not null" json:"taskEvidenceType"`
	Observations          string         `gorm:"type:text" json:"taskEvidenceObservations"`
	URL                   string         `gorm:"type:text" json:"taskEvidenceUrl"`
	Date                  time.Time      `gorm:"not null" json:"taskEvidenceDate"`
	TechnicianID          uuid.UUID      `gorm:"type:uuid;not null" json:"taskEvidenceTechnician"`
	SupervisorID          uuid.UUID      `gorm:"type:uuid;not null" json:"taskEvidenceSupervisor"`
	Status                EvidenceStatus `gorm:"type:evidence_status;not null;default:'Pending'" json:"taskEvidenceStatus"`
	SupervisorObservation *string        `gorm:"type:text" json:"taskEvidenceSupervisorObservation"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (TaskEvidence) TableName() string {
	return "task_evidences"
}

func (e *TaskEvidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return e.Validate()
}

func (e *TaskEvidence) BeforeUpdate(tx *gorm.DB) error {
	return e.Validate()
}

// Validate requires a supervisor observation on rejected evidence.
func (e *TaskEvidence) Validate() error {
	if e.Status == EvidenceStatusRejected && (e.SupervisorObservation == nil || *e.SupervisorObservation == "") {
		return ErrSupervisorObservationRequired
	}
	return nil
}
