package service

//go:generate mockgen -destination=mock_ports_test.go -package=service workorder-service/internal/service AuditSink,Notifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
)

type WorkOrderStore interface {
	Create(ctx context.Context, workOrder *model.WorkOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	Update(ctx context.Context, workOrder *model.WorkOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, error)
	NextSequence(ctx context.Context, year int) (int, error)
	ListScheduledForTechnician(ctx context.Context, technicianID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]model.WorkOrder, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *model.WorkOrderTask) error
	CreateBatch(ctx context.Context, tasks []model.WorkOrderTask) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrderTask, error)
	Update(ctx context.Context, task *model.WorkOrderTask) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderTask, error)
	CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error)
	MaxOrdering(ctx context.Context, workOrderID uuid.UUID) (int, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, evidence *model.TaskEvidence) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TaskEvidence, error)
	Update(ctx context.Context, evidence *model.TaskEvidence) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskEvidence, error)
	ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]model.TaskEvidence, error)
	MaxOrdering(ctx context.Context, taskID uuid.UUID) (int, error)
}

type TemplateStore interface {
	Create(ctx context.Context, template *model.TaskTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error)
	Update(ctx context.Context, template *model.TaskTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repository.TaskTemplateFilter) ([]model.TaskTemplate, error)
	Search(ctx context.Context, term string) ([]model.TaskTemplate, error)
	MaxOrdering(ctx context.Context, serviceType model.ServiceType) (int, error)
	Count(ctx context.Context) (int64, error)
}

type ClientStore interface {
	Create(ctx context.Context, client *model.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	GetByEmail(ctx context.Context, email string) (*model.Client, error)
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.Client, error)
	Search(ctx context.Context, term string) ([]model.Client, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter repository.UserFilter) ([]model.User, error)
	ExistsByRole(ctx context.Context, role model.Role) (bool, error)
	AppendLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error
	ListLoginAttempts(ctx context.Context, userID uuid.UUID) ([]model.LoginAttempt, error)
}

type AuditStore interface {
	List(ctx context.Context, filter repository.AuditLogFilter) ([]model.AuditLog, error)
}

// AuditSink receives one immutable entry per mutating operation.
type AuditSink interface {
	Append(ctx context.Context, entry model.AuditEntry) error
}

// Notifier delivers a rendered message to a user.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	AdvisoryLock(ctx context.Context, key string) error
}

// Stores bundles the persistence ports every service draws from.
type Stores struct {
	WorkOrders WorkOrderStore
	Tasks      TaskStore
	Evidences  EvidenceStore
	Templates  TemplateStore
	Clients    ClientStore
	Users      UserStore
	AuditLogs  AuditStore
	Audit      AuditSink
	Tx         Transactor
}
