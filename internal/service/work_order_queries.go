package service

import (
	"context"

	"github.com/google/uuid"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
)

// scopedFilter narrows a listing to what the caller may see: supervisors
// their own orders, technicians the orders assigned to them.
func scopedFilter(principal model.Principal, filter repository.WorkOrderFilter) repository.WorkOrderFilter {
	id := principal.UserID
	switch principal.Role {
	case model.RoleSupervisor:
		filter.SupervisorID = &id
	case model.RoleTechnician:
		filter.TechnicianID = &id
	}
	return filter
}

func (s *WorkOrderService) List(ctx context.Context, principal model.Principal) ([]model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "work order")
	}
	orders, err := s.stores.WorkOrders.List(ctx, scopedFilter(principal, repository.WorkOrderFilter{}))
	if err != nil {
		return nil, storeError(err, "work order")
	}
	return orders, nil
}

func (s *WorkOrderService) GetByID(ctx context.Context, principal model.Principal, id string) (*model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "work order")
	}
	woID, err := parseID(id, "work order id")
	if err != nil {
		return nil, err
	}
	return s.visibleOrder(ctx, principal, woID)
}

func (s *WorkOrderService) visibleOrder(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.WorkOrder, error) {
	wo, err := s.stores.WorkOrders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "work order")
	}
	if err := checkOwnership(principal, wo); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *WorkOrderService) ListByClient(ctx context.Context, principal model.Principal, clientID string) ([]model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "work order")
	}
	id, err := parseID(clientID, "client id")
	if err != nil {
		return nil, err
	}
	orders, err := s.stores.WorkOrders.List(ctx, scopedFilter(principal, repository.WorkOrderFilter{ClientID: &id}))
	if err != nil {
		return nil, storeError(err, "work order")
	}
	return orders, nil
}

// ListByTechnician lists one technician's orders. Technicians may only ask
// for themselves.
func (s *WorkOrderService) ListByTechnician(ctx context.Context, principal model.Principal, technicianID string) ([]model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrders); err != nil {
		return nil, storeError(err, "work order")
	}
	id, err := parseID(technicianID, "technician id")
	if err != nil {
		return nil, err
	}
	if principal.IsTechnician() && id != principal.UserID {
		return nil, newError(ErrForbidden, "technicians may only list their own work orders")
	}
	orders, err := s.stores.WorkOrders.List(ctx, scopedFilter(principal, repository.WorkOrderFilter{TechnicianID: &id}))
	if err != nil {
		return nil, storeError(err, "work order")
	}
	return orders, nil
}

// ListRejected returns the caller's orders sent back for rework.
func (s *WorkOrderService) ListRejected(ctx context.Context, principal model.Principal) ([]model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpListRejected); err != nil {
		return nil, storeError(err, "work order")
	}
	status := model.WorkOrderStatusUnderReview
	rejected := true
	orders, err := s.stores.WorkOrders.List(ctx, scopedFilter(principal, repository.WorkOrderFilter{
		Status:   &status,
		Rejected: &rejected,
	}))
	if err != nil {
		return nil, storeError(err, "work order")
	}
	return orders, nil
}

// ListPendingApproval returns the supervisor's orders under review with no
// rejection pending.
func (s *WorkOrderService) ListPendingApproval(ctx context.Context, principal model.Principal) ([]model.WorkOrder, error) {
	if err := policy.Authorize(principal.Role, policy.OpListPendingApproval); err != nil {
		return nil, storeError(err, "work order")
	}
	status := model.WorkOrderStatusUnderReview
	rejected := false
	orders, err := s.stores.WorkOrders.List(ctx, scopedFilter(principal, repository.WorkOrderFilter{
		Status:   &status,
		Rejected: &rejected,
	}))
	if err != nil {
		return nil, storeError(err, "work order")
	}
	return orders, nil
}

type TaskWithEvidence struct {
	model.WorkOrderTask
	Evidences []model.TaskEvidence `json:"evidences"`
}

type WorkOrderReport struct {
	model.WorkOrder
	Tasks []TaskWithEvidence `json:"tasks"`
}

// Report assembles an order with its tasks in order and each task's evidence.
func (s *WorkOrderService) Report(ctx context.Context, principal model.Principal, id string) (*WorkOrderReport, error) {
	if err := policy.Authorize(principal.Role, policy.OpViewWorkOrderReport); err != nil {
		return nil, storeError(err, "work order")
	}
	woID, err := parseID(id, "work order id")
	if err != nil {
		return nil, err
	}
	wo, err := s.visibleOrder(ctx, principal, woID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.stores.Tasks.ListByWorkOrder(ctx, wo.ID)
	if err != nil {
		return nil, storeError(err, "task")
	}
	taskIDs := make([]uuid.UUID, len(tasks))
	for i := range tasks {
		taskIDs[i] = tasks[i].ID
	}

	byTask := make(map[uuid.UUID][]model.TaskEvidence, len(tasks))
	if len(taskIDs) > 0 {
		evidences, err := s.stores.Evidences.ListByTasks(ctx, taskIDs)
		if err != nil {
			return nil, storeError(err, "evidence")
		}
		for _, ev := range evidences {
			byTask[ev.TaskID] = append(byTask[ev.TaskID], ev)
		}
	}

	report := &WorkOrderReport{
		WorkOrder: *wo,
		Tasks:     make([]TaskWithEvidence, 0, len(tasks)),
	}
	for _, task := range tasks {
		evidences := byTask[task.ID]
		if evidences == nil {
			evidences = []model.TaskEvidence{}
		}
		report.Tasks = append(report.Tasks, TaskWithEvidence{WorkOrderTask: task, Evidences: evidences})
	}
	return report, nil
}
