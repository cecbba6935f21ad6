package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditActionCreate    AuditAction = "CREATE"
	AuditActionUpdate    AuditAction = "UPDATE"
	AuditActionDelete    AuditAction = "DELETE"
	AuditActionRead      AuditAction = "READ"
	AuditActionLogin     AuditAction = "LOGIN"
	AuditActionInactive  AuditAction = "INACTIVE"
	AuditActionSendEmail AuditAction = "SENDEMAIL"
)

const (
	AuditModelWorkOrder     = "WorkOrder"
	AuditModelWorkOrderTask = "WorkOrderTask"
	AuditModelTaskEvidence  = "TaskEvidence"
	AuditModelTaskTemplate  = "TaskTemplate"
	AuditModelClient        = "Client"
	AuditModelUser          = "User"
)

// AuditLog is the persisted, append-only row.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	User       string         `gorm:"column:audit_log_user;type:varchar(255);not null;index" json:"auditLogUser"`
	Action     AuditAction    `gorm:"column:audit_log_action;type:varchar(16);not null" json:"auditLogAction"`
	Model      string         `gorm:"column:audit_log_model;type:varchar(64);not null;index" json:"auditLogModel"`
	DocumentID *string        `gorm:"column:audit_log_document_id;type:varchar(64)" json:"auditLogDocumentId"`
	Changes    datatypes.JSON `gorm:"column:audit_log_changes;type:jsonb" json:"auditLogChanges"`
	Timestamp  time.Time      `gorm:"column:audit_log_timestamp;not null" json:"auditLogTimestamp"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AuditEntry is built fresh for every operation and never mutated afterwards.
type AuditEntry struct {
	actor      string
	action     AuditAction
	model      string
	documentID *string
	changes    json.RawMessage
	timestamp  time.Time
}

func NewAuditEntry(actor string, action AuditAction, modelName string, documentID string, changes any, at time.Time) AuditEntry {
	entry := AuditEntry{
		actor:     actor,
		action:    action,
		model:     modelName,
		timestamp: at,
	}
	if documentID != "" {
		id := documentID
		entry.documentID = &id
	}

	raw, err := json.Marshal(changes)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"marshalError": err.Error()})
	}
	entry.changes = raw

	return entry
}

func (e AuditEntry) Actor() string { return e.actor }
func (e AuditEntry) Action() AuditAction { return e.action }
func (e AuditEntry) Model() string { return e.model }
func (e AuditEntry) Timestamp() time.Time { return e.timestamp }

func (e AuditEntry) DocumentID() *string {
	if e.documentID == nil {
		return nil
	}
	id := *e.documentID
	return &id
}

func (e AuditEntry) Changes() json.RawMessage {
	out := make(json.RawMessage, len(e.changes))
	copy(out, e.changes)
	return out
}

// Row converts the entry to its persisted form.
func (e AuditEntry) Row() AuditLog {
	return AuditLog{
		User:       e.actor,
		Action:     e.action,
		Model:      e.model,
		DocumentID: e.DocumentID(),
		Changes:    datatypes.JSON(e.Changes()),
		Timestamp:  e.timestamp,
	}
}

// FieldChange is one entry of an update diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}
