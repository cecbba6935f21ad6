package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
)

// TaskService tracks the tasks of a work order and the evidence technicians
// attach to them.
type TaskService struct {
	stores Stores
	audit  auditRecorder
	log    zerolog.Logger
	now    func() time.Time
}

func NewTaskService(stores Stores, log zerolog.Logger) *TaskService {
	s := &TaskService{stores: stores, log: log, now: time.Now}
	s.audit = auditRecorder{sink: stores.Audit, log: log, now: s.clock}
	return s
}

func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func (s *TaskService) clock() time.Time {
	return s.now()
}

func taskLockKey(id uuid.UUID) string {
	return "task:" + id.String()
}

// orderOfTask loads a task with the work order it belongs to and checks the
// caller is a party to that order.
func (s *TaskService) orderOfTask(ctx context.Context, principal model.Principal, taskID uuid.UUID) (*model.WorkOrderTask, *model.WorkOrder, error) {
	task, err := s.stores.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, storeError(err, "task")
	}
	wo, err := s.stores.WorkOrders.GetByID(ctx, task.WorkOrderID)
	if err != nil {
		return nil, nil, storeError(err, "work order")
	}
	if err := checkOwnership(principal, wo); err != nil {
		return nil, nil, err
	}
	return task, wo, nil
}

func (s *TaskService) ListTasks(ctx context.Context, principal model.Principal, workOrderID string) ([]model.WorkOrderTask, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "task")
	}
	woID, err := parseID(workOrderID, "work order id")
	if err != nil {
		return nil, err
	}
	wo, err := s.stores.WorkOrders.GetByID(ctx, woID)
	if err != nil {
		return nil, storeError(err, "work order")
	}
	if err := checkOwnership(principal, wo); err != nil {
		return nil, err
	}
	tasks, err := s.stores.Tasks.ListByWorkOrder(ctx, woID)
	if err != nil {
		return nil, storeError(err, "task")
	}
	return tasks, nil
}

type AddTaskInput struct {
	Description string `json:"workOrderTaskDescription"`
}

// AddTask appends an ad-hoc task after the existing ones.
func (s *TaskService) AddTask(ctx context.Context, principal model.Principal, workOrderID string, input AddTaskInput) (*model.WorkOrderTask, error) {
	if err := policy.Authorize(principal.Role, policy.OpManageTasks); err != nil {
		return nil, storeError(err, "task")
	}
	woID, err := parseID(workOrderID, "work order id")
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, validationError("workOrderTaskDescription is required")
	}

	var task *model.WorkOrderTask
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, workOrderLockKey(woID)); err != nil {
			return err
		}
		wo, err := s.stores.WorkOrders.GetByID(ctx, woID)
		if err != nil {
			return err
		}
		if err := checkOwnership(principal, wo); err != nil {
			return err
		}
		if wo.Status == model.WorkOrderStatusApproved {
			return validationError("approved work orders are closed")
		}
		maxOrdering, err := s.stores.Tasks.MaxOrdering(ctx, woID)
		if err != nil {
			return err
		}
		task = &model.WorkOrderTask{
			WorkOrderID:  woID,
			Ordering:     maxOrdering + 1,
			Description:  description,
			TechnicianID: wo.AssignedTechnicianID,
			Status:       model.TaskStatusPending,
		}
		return s.stores.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, storeError(err, "task")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelWorkOrderTask, task.ID.String(), task)
	return task, nil
}

type UpdateTaskStatusInput struct {
	Status      string  `json:"workOrderTaskStatus"`
	Observation *string `json:"workOrderTaskObservationByReject"`
}

var (
	technicianTaskStatuses = map[model.TaskStatus]bool{
		model.TaskStatusPending:    true,
		model.TaskStatusInProgress: true,
		model.TaskStatusCompleted:  true,
	}
	supervisorTaskStatuses = map[model.TaskStatus]bool{
		model.TaskStatusApproved: true,
		model.TaskStatusRejected: true,
	}
)

// checkTaskChangeAllowed rejects task status changes once the order is out of
// the caller's hands. Technicians work tasks while the order is Assigned or
// In Progress, or Under Review after the supervisor sent it back. Approved
// orders are closed to everyone.
func checkTaskChangeAllowed(principal model.Principal, wo *model.WorkOrder) error {
	if wo.Status == model.WorkOrderStatusApproved {
		return validationError("approved work orders are closed")
	}
	if !principal.IsTechnician() {
		return nil
	}
	switch wo.Status {
	case model.WorkOrderStatusAssigned, model.WorkOrderStatusInProgress:
		return nil
	case model.WorkOrderStatusUnderReview:
		if wo.IsRejected() {
			return nil
		}
	}
	return validationError("tasks of a work order in status %s cannot be changed", wo.Status)
}

// UpdateTaskStatus lets the assigned technician progress a task and the
// supervisor approve or reject it.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, principal model.Principal, taskID string, input UpdateTaskStatusInput) (*model.WorkOrderTask, error) {
	id, err := parseID(taskID, "task id")
	if err != nil {
		return nil, err
	}
	status := model.TaskStatus(strings.TrimSpace(input.Status))
	if !status.Valid() {
		return nil, validationError("invalid workOrderTaskStatus %q", input.Status)
	}

	switch principal.Role {
	case model.RoleTechnician:
		if err := policy.Authorize(principal.Role, policy.OpWorkTasks); err != nil {
			return nil, storeError(err, "task")
		}
		if !technicianTaskStatuses[status] {
			return nil, newError(ErrForbidden, "technicians may not set task status %q", status)
		}
	default:
		if err := policy.Authorize(principal.Role, policy.OpReviewTasks); err != nil {
			return nil, storeError(err, "task")
		}
		if !supervisorTaskStatuses[status] {
			return nil, newError(ErrForbidden, "supervisors may not set task status %q", status)
		}
	}

	observation := trimmed(input.Observation)
	if observation != nil && *observation == "" {
		observation = nil
	}
	if status == model.TaskStatusRejected && observation == nil {
		return nil, validationError("workOrderTaskObservationByReject is required when rejecting a task")
	}

	var (
		task    *model.WorkOrderTask
		changes changeSet
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Lock order: work order, then task. UpdateStatus holds the
		// work order lock while it counts completed tasks.
		owner, err := s.stores.Tasks.GetByID(ctx, id)
		if err != nil {
			return storeError(err, "task")
		}
		if err := s.stores.Tx.AdvisoryLock(ctx, workOrderLockKey(owner.WorkOrderID)); err != nil {
			return err
		}
		if err := s.stores.Tx.AdvisoryLock(ctx, taskLockKey(id)); err != nil {
			return err
		}
		current, wo, err := s.orderOfTask(ctx, principal, id)
		if err != nil {
			return err
		}
		if err := checkTaskChangeAllowed(principal, wo); err != nil {
			return err
		}

		next := *current
		next.Status = status
		if status == model.TaskStatusRejected {
			next.ObservationByReject = observation
		} else if principal.IsSupervisor() {
			next.ObservationByReject = nil
		}

		changes = changeSet{}
		changes.track("workOrderTaskStatus", current.Status, next.Status)
		changes.track("workOrderTaskObservationByReject", current.ObservationByReject, next.ObservationByReject)
		if changes.empty() {
			return newError(ErrNoChanges, "task status is unchanged")
		}

		now := s.now().UTC()
		next.UpdateDate = &now
		if principal.IsTechnician() {
			techID := principal.UserID
			next.TechnicianID = &techID
		}
		if err := s.stores.Tasks.Update(ctx, &next); err != nil {
			return err
		}
		task = &next
		return nil
	})
	if err != nil {
		return nil, storeError(err, "task")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelWorkOrderTask, task.ID.String(), changes)
	return task, nil
}

type AddEvidenceInput struct {
	Type         string  `json:"taskEvidenceType"`
	Observations string  `json:"taskEvidenceObservations"`
	URL          string  `json:"taskEvidenceUrl"`
	Date         *string `json:"taskEvidenceDate"`
}

// AddEvidence attaches proof of work to a task of an order assigned to the
// caller.
func (s *TaskService) AddEvidence(ctx context.Context, principal model.Principal, taskID string, input AddEvidenceInput) (*model.TaskEvidence, error) {
	if err := policy.Authorize(principal.Role, policy.OpAddEvidence); err != nil {
		return nil, storeError(err, "evidence")
	}
	id, err := parseID(taskID, "task id")
	if err != nil {
		return nil, err
	}
	evidenceType := model.EvidenceType(strings.TrimSpace(input.Type))
	if !evidenceType.Valid() {
		return nil, validationError("invalid taskEvidenceType %q", input.Type)
	}
	url := strings.TrimSpace(input.URL)
	observations := strings.TrimSpace(input.Observations)
	if url == "" && observations == "" {
		return nil, validationError("taskEvidenceUrl or taskEvidenceObservations is required")
	}
	date, err := parseOptionalTimestamp(input.Date, "taskEvidenceDate")
	if err != nil {
		return nil, err
	}
	if date == nil {
		now := s.now().UTC()
		date = &now
	}

	var evidence *model.TaskEvidence
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, taskLockKey(id)); err != nil {
			return err
		}
		_, wo, err := s.orderOfTask(ctx, principal, id)
		if err != nil {
			return err
		}
		maxOrdering, err := s.stores.Evidences.MaxOrdering(ctx, id)
		if err != nil {
			return err
		}
		evidence = &model.TaskEvidence{
			TaskID:       id,
			Ordering:     maxOrdering + 1,
			Type:         evidenceType,
			Observations: observations,
			URL:          url,
			Date:         *date,
			TechnicianID: principal.UserID,
			SupervisorID: wo.SupervisorID,
			Status:       model.EvidenceStatusPending,
		}
		return s.stores.Evidences.Create(ctx, evidence)
	})
	if err != nil {
		return nil, storeError(err, "evidence")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelTaskEvidence, evidence.ID.String(), evidence)
	return evidence, nil
}

func (s *TaskService) ListEvidence(ctx context.Context, principal model.Principal, taskID string) ([]model.TaskEvidence, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "evidence")
	}
	id, err := parseID(taskID, "task id")
	if err != nil {
		return nil, err
	}
	if _, _, err := s.orderOfTask(ctx, principal, id); err != nil {
		return nil, err
	}
	evidences, err := s.stores.Evidences.ListByTask(ctx, id)
	if err != nil {
		return nil, storeError(err, "evidence")
	}
	return evidences, nil
}

type ReviewEvidenceInput struct {
	Status                string  `json:"taskEvidenceStatus"`
	SupervisorObservation *string `json:"taskEvidenceSupervisorObservation"`
}

// ReviewEvidence records the supervisor's verdict on one piece of evidence.
func (s *TaskService) ReviewEvidence(ctx context.Context, principal model.Principal, evidenceID string, input ReviewEvidenceInput) (*model.TaskEvidence, error) {
	if err := policy.Authorize(principal.Role, policy.OpReviewEvidence); err != nil {
		return nil, storeError(err, "evidence")
	}
	id, err := parseID(evidenceID, "evidence id")
	if err != nil {
		return nil, err
	}
	status := model.EvidenceStatus(strings.TrimSpace(input.Status))
	if !status.Valid() {
		return nil, validationError("invalid taskEvidenceStatus %q", input.Status)
	}

	var (
		evidence *model.TaskEvidence
		changes  changeSet
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.stores.Evidences.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, _, err := s.orderOfTask(ctx, principal, current.TaskID); err != nil {
			return err
		}

		next := *current
		next.Status = status
		if obs := trimmed(input.SupervisorObservation); obs != nil {
			next.SupervisorObservation = obs
			if *obs == "" {
				next.SupervisorObservation = nil
			}
		}
		if err := next.Validate(); err != nil {
			return err
		}

		changes = changeSet{}
		changes.track("taskEvidenceStatus", current.Status, next.Status)
		changes.track("taskEvidenceSupervisorObservation", current.SupervisorObservation, next.SupervisorObservation)
		if changes.empty() {
			return newError(ErrNoChanges, "evidence review is unchanged")
		}
		if err := s.stores.Evidences.Update(ctx, &next); err != nil {
			return err
		}
		evidence = &next
		return nil
	})
	if err != nil {
		return nil, storeError(err, "evidence")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelTaskEvidence, evidence.ID.String(), changes)
	return evidence, nil
}
