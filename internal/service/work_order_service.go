package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
)

type WorkOrderSettings struct {
	SchedulingWindow time.Duration
	OverlapBoundary  policy.Boundary
	NumberRetries    int
}

type WorkOrderService struct {
	stores   Stores
	notifier Notifier
	settings WorkOrderSettings
	audit    auditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewWorkOrderService(stores Stores, notifier Notifier, settings WorkOrderSettings, log zerolog.Logger) *WorkOrderService {
	if settings.SchedulingWindow <= 0 {
		settings.SchedulingWindow = 7 * 24 * time.Hour
	}
	if settings.NumberRetries <= 0 {
		settings.NumberRetries = 3
	}
	s := &WorkOrderService{
		stores:   stores,
		notifier: notifier,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
	s.audit = auditRecorder{sink: stores.Audit, log: log, now: s.clock}
	return s
}

// WithClock replaces the time source used for numbering and window checks.
func (s *WorkOrderService) WithClock(now func() time.Time) *WorkOrderService {
	s.now = now
	return s
}

func (s *WorkOrderService) clock() time.Time {
	return s.now()
}

type CreateWorkOrderInput struct {
	SupervisorID         *string  `json:"workOrderSupervisor"`
	ClientID             string   `json:"clientId"`
	Description          string   `json:"workOrderDescription"`
	ServiceType          string   `json:"serviceType"`
	ScheduledDate        *string  `json:"workOrderScheduledDate"`
	EstimatedDuration    *float64 `json:"workOrderEstimatedDuration"`
	AssignedTechnicianID *string  `json:"workOrderAssignedTechnician"`
}

// WorkOrderResult carries the stored order plus the caller-facing message.
type WorkOrderResult struct {
	WorkOrder *model.WorkOrder
	Tasks     []model.WorkOrderTask
	Message   string
}

func (s *WorkOrderService) Create(ctx context.Context, principal model.Principal, input CreateWorkOrderInput) (*WorkOrderResult, error) {
	// 1. authorize
	if err := policy.Authorize(principal.Role, policy.OpCreateWorkOrder); err != nil {
		return nil, storeError(err, "work order")
	}

	// 2. validate the request
	wo, err := s.draftFromInput(principal, input)
	if err != nil {
		return nil, err
	}

	// 3. participants and client snapshot
	technician, err := s.resolveParticipants(ctx, wo)
	if err != nil {
		return nil, err
	}
	if err := s.copyClientSnapshot(ctx, wo); err != nil {
		return nil, err
	}

	// 4. initial status
	wo.Status = model.WorkOrderStatusUnassigned
	if wo.IsSchedulable() {
		wo.Status = model.WorkOrderStatusAssigned
	}

	// 5-6. overlap check, numbering, insert and tasks under one transaction
	tasks, err := s.persistNew(ctx, wo)
	if err != nil {
		return nil, err
	}

	// 7. audit
	s.audit.record(ctx, principalActor(principal), model.AuditActionCreate, model.AuditModelWorkOrder, wo.ID.String(), wo)

	// 8. notify
	message := "Work order created successfully."
	if technician != nil {
		message = s.notifyAssignment(ctx, wo, technician, message)
	}

	s.log.Info().
		Str("work_order_id", wo.ID.String()).
		Str("number", wo.Number).
		Str("status", string(wo.Status)).
		Msg("work order created")

	return &WorkOrderResult{WorkOrder: wo, Tasks: tasks, Message: message}, nil
}

func (s *WorkOrderService) draftFromInput(principal model.Principal, input CreateWorkOrderInput) (*model.WorkOrder, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, validationError("workOrderDescription is required")
	}

	serviceType := model.ServiceType(strings.TrimSpace(input.ServiceType))
	if !serviceType.Valid() {
		return nil, validationError("invalid serviceType %q", input.ServiceType)
	}

	clientID, err := parseID(input.ClientID, "clientId")
	if err != nil {
		return nil, err
	}

	supervisorID := principal.UserID
	if id, err := parseOptionalID(input.SupervisorID, "workOrderSupervisor"); err != nil {
		return nil, err
	} else if id != nil {
		supervisorID = *id
	}

	technicianID, err := parseOptionalID(input.AssignedTechnicianID, "workOrderAssignedTechnician")
	if err != nil {
		return nil, err
	}

	duration := model.DefaultEstimatedDuration
	if input.EstimatedDuration != nil {
		duration = *input.EstimatedDuration
	}
	if err := validateDuration(duration); err != nil {
		return nil, err
	}

	scheduled, err := parseOptionalTimestamp(input.ScheduledDate, "workOrderScheduledDate")
	if err != nil {
		return nil, err
	}
	if scheduled != nil {
		if err := policy.ScheduleWindow(*scheduled, s.now().UTC(), s.settings.SchedulingWindow); err != nil {
			return nil, validationError("%s", err.Error())
		}
	}

	return &model.WorkOrder{
		SupervisorID:         supervisorID,
		ClientID:             clientID,
		Description:          description,
		ServiceType:          serviceType,
		ScheduledDate:        scheduled,
		EstimatedDuration:    duration,
		AssignedTechnicianID: technicianID,
	}, nil
}

func validateDuration(hours float64) error {
	if hours < model.MinEstimatedDuration || hours > model.MaxEstimatedDuration {
		return validationError("workOrderEstimatedDuration must be between %g and %g hours",
			model.MinEstimatedDuration, model.MaxEstimatedDuration)
	}
	return nil
}

// resolveParticipants checks the referenced supervisor and technician carry
// the right roles. It returns the technician when one is assigned.
func (s *WorkOrderService) resolveParticipants(ctx context.Context, wo *model.WorkOrder) (*model.User, error) {
	if _, err := s.userWithRole(ctx, wo.SupervisorID, model.RoleSupervisor, "workOrderSupervisor"); err != nil {
		return nil, err
	}
	if wo.AssignedTechnicianID == nil {
		return nil, nil
	}
	return s.userWithRole(ctx, *wo.AssignedTechnicianID, model.RoleTechnician, "workOrderAssignedTechnician")
}

func (s *WorkOrderService) userWithRole(ctx context.Context, id uuid.UUID, role model.Role, field string) (*model.User, error) {
	user, err := s.stores.Users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, newError(ErrReferentialIntegrity, "%s %s does not exist", field, id)
		}
		return nil, err
	}
	if user.Role != role {
		return nil, newError(ErrReferentialIntegrity, "%s must reference a %s, got %s", field, role, user.Role)
	}
	return user, nil
}

func (s *WorkOrderService) copyClientSnapshot(ctx context.Context, wo *model.WorkOrder) error {
	client, err := s.stores.Clients.GetByID(ctx, wo.ClientID)
	if err != nil {
		return storeError(err, "client")
	}
	wo.Address = client.Address
	wo.ContactPerson = client.ContactPerson
	wo.Phone = client.Phone
	wo.ClientEmail = client.Email
	wo.Location = datatypes.NewJSONType(client.GeoLocation.Data())
	return nil
}

// persistNew numbers and inserts the order. A lost race on the number is
// retried with a fresh transaction, since a failed statement poisons the
// current one.
func (s *WorkOrderService) persistNew(ctx context.Context, wo *model.WorkOrder) ([]model.WorkOrderTask, error) {
	var tasks []model.WorkOrderTask

	for attempt := 1; ; attempt++ {
		err := s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if wo.IsSchedulable() {
				if err := s.stores.Tx.AdvisoryLock(ctx, technicianLockKey(*wo.AssignedTechnicianID)); err != nil {
					return err
				}
				if err := s.checkOverlap(ctx, wo, nil); err != nil {
					return err
				}
			}

			year := s.now().UTC().Year()
			if err := s.stores.Tx.AdvisoryLock(ctx, fmt.Sprintf("workorder-number:%d", year)); err != nil {
				return err
			}
			seq, err := s.stores.WorkOrders.NextSequence(ctx, year)
			if err != nil {
				return err
			}
			wo.NumberYear = year
			wo.NumberSequence = seq
			wo.Number = model.FormatWorkOrderNumber(seq, year)

			if err := s.stores.WorkOrders.Create(ctx, wo); err != nil {
				return err
			}

			tasks = nil
			if wo.Status == model.WorkOrderStatusAssigned {
				tasks, err = s.instantiateTasks(ctx, wo)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return tasks, nil
		}

		constraint, dup := repository.DuplicateConstraint(err)
		numberClash := dup && (constraint == repository.ConstraintWorkOrderNumber || constraint == repository.ConstraintWorkOrderSequence)
		if numberClash && attempt < s.settings.NumberRetries {
			s.log.Warn().
				Int("attempt", attempt).
				Str("number", wo.Number).
				Msg("work order number taken, retrying")
			wo.ID = uuid.Nil
			continue
		}
		return nil, storeError(err, "work order")
	}
}

func technicianLockKey(id uuid.UUID) string {
	return "technician:" + id.String()
}

func workOrderLockKey(id uuid.UUID) string {
	return "workorder:" + id.String()
}

// checkOverlap rejects wo when its technician already holds a booking that
// intersects wo's interval. exclude skips the order being edited.
func (s *WorkOrderService) checkOverlap(ctx context.Context, wo *model.WorkOrder, exclude *uuid.UUID) error {
	start, end, ok := wo.Interval()
	if !ok || wo.AssignedTechnicianID == nil {
		return nil
	}

	// Any booking that can reach start began at most one maximum duration earlier.
	from := start.Add(-model.DurationHours(model.MaxEstimatedDuration))
	candidates, err := s.stores.WorkOrders.ListScheduledForTechnician(ctx, *wo.AssignedTechnicianID, from, end, exclude)
	if err != nil {
		return err
	}

	mine := policy.Interval{Start: start, End: end}
	for i := range candidates {
		other := &candidates[i]
		oStart, oEnd, ok := other.Interval()
		if !ok {
			continue
		}
		if policy.Overlaps(mine, policy.Interval{Start: oStart, End: oEnd}, s.settings.OverlapBoundary) {
			return newError(ErrSchedulingConflict,
				"technician is already booked on work order %s from %s to %s",
				other.Number, oStart.UTC().Format(time.RFC3339), oEnd.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// instantiateTasks copies the service type's templates onto the order. It is a
// no-op when the order already has tasks.
func (s *WorkOrderService) instantiateTasks(ctx context.Context, wo *model.WorkOrder) ([]model.WorkOrderTask, error) {
	count, err := s.stores.Tasks.CountByWorkOrder(ctx, wo.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	serviceType := wo.ServiceType
	templates, err := s.stores.Templates.List(ctx, repository.TaskTemplateFilter{ServiceType: &serviceType})
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}

	tasks := make([]model.WorkOrderTask, 0, len(templates))
	for i, tpl := range templates {
		task := model.WorkOrderTask{
			WorkOrderID: wo.ID,
			Ordering:    i + 1,
			Description: tpl.Description,
			Status:      model.TaskStatusPending,
		}
		if wo.AssignedTechnicianID != nil {
			techID := *wo.AssignedTechnicianID
			task.TechnicianID = &techID
		}
		tasks = append(tasks, task)
	}
	if err := s.stores.Tasks.CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *WorkOrderService) notifyAssignment(ctx context.Context, wo *model.WorkOrder, technician *model.User, prefix string) string {
	if s.notifier == nil {
		return prefix + " Technician notification failed: no notifier configured"
	}

	n, err := renderNotification(EventWorkOrderAssigned,
		Recipient{UserID: technician.ID, Email: technician.Email, Name: technician.FullName},
		model.AuditModelWorkOrder, wo.ID.String(),
		map[string]string{
			"Number":        wo.Number,
			"ServiceType":   string(wo.ServiceType),
			"Client":        wo.ClientEmail,
			"Address":       wo.Address,
			"ContactPerson": wo.ContactPerson,
			"Phone":         wo.Phone,
			"Scheduled":     formatTime(wo.ScheduledDate),
			"Duration":      durationLabel(wo.EstimatedDuration),
			"Description":   wo.Description,
		})
	if err == nil {
		err = s.notifier.Notify(ctx, n)
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("work_order_id", wo.ID.String()).
			Str("technician_id", technician.ID.String()).
			Msg("failed to notify technician")
		return fmt.Sprintf("%s Technician notification failed: %v", prefix, err)
	}
	return prefix + " Technician notified."
}

type UpdateStatusInput struct {
	Status          *string `json:"workOrderStatus"`
	ReasonRejection *string `json:"workOrderReasonRejection"`
}

// UpdateStatus moves an order through its lifecycle and lets its supervisor
// attach a rejection reason while it is under review.
func (s *WorkOrderService) UpdateStatus(ctx context.Context, principal model.Principal, id string, input UpdateStatusInput) (*WorkOrderResult, error) {
	if err := policy.Authorize(principal.Role, policy.OpUpdateWorkOrderStatus); err != nil {
		return nil, storeError(err, "work order")
	}
	woID, err := parseID(id, "work order id")
	if err != nil {
		return nil, err
	}
	if input.Status == nil && input.ReasonRejection == nil {
		return nil, validationError("workOrderStatus or workOrderReasonRejection is required")
	}

	var (
		wo      *model.WorkOrder
		changes changeSet
		tasks   []model.WorkOrderTask
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, workOrderLockKey(woID)); err != nil {
			return err
		}
		current, err := s.stores.WorkOrders.GetByID(ctx, woID)
		if err != nil {
			return err
		}
		if err := checkOwnership(principal, current); err != nil {
			return err
		}

		next := *current
		if err := s.applyStatusRequest(ctx, principal, current, &next, input); err != nil {
			return err
		}

		changes = changeSet{}
		changes.track("workOrderStatus", current.Status, next.Status)
		changes.track("workOrderReasonRejection", current.ReasonRejection, next.ReasonRejection)
		if changes.empty() {
			return newError(ErrNoChanges, "status and rejection reason are unchanged")
		}

		if err := s.stores.WorkOrders.Update(ctx, &next); err != nil {
			return err
		}
		if next.Status == model.WorkOrderStatusAssigned {
			if tasks, err = s.instantiateTasks(ctx, &next); err != nil {
				return err
			}
		}
		wo = &next
		return nil
	})
	if err != nil {
		return nil, storeError(err, "work order")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelWorkOrder, wo.ID.String(), changes)
	return &WorkOrderResult{WorkOrder: wo, Tasks: tasks, Message: "Work order status updated."}, nil
}

func (s *WorkOrderService) applyStatusRequest(ctx context.Context, principal model.Principal, current, next *model.WorkOrder, input UpdateStatusInput) error {
	if input.Status != nil {
		to := model.WorkOrderStatus(strings.TrimSpace(*input.Status))
		if !to.Valid() {
			return validationError("invalid workOrderStatus %q", *input.Status)
		}

		resubmission := principal.IsTechnician() && current.IsRejected() && to == current.Status
		if to != current.Status || resubmission {
			facts := policy.Facts{
				Rejected:  current.IsRejected(),
				Scheduled: current.IsSchedulable(),
			}
			if to == model.WorkOrderStatusUnderReview {
				done, err := s.tasksCompleted(ctx, current.ID)
				if err != nil {
					return err
				}
				facts.TasksCompleted = done
			}
			if err := policy.CheckTransition(principal.Role, current.Status, to, facts); err != nil {
				return err
			}
			if policy.ClearsRejection(principal.Role, current.Status, to) {
				next.ReasonRejection = nil
			}
			next.Status = to
		}
	}

	if input.ReasonRejection != nil {
		if err := policy.CheckRejection(principal.Role, current.Status); err != nil {
			return err
		}
		if next.Status != current.Status {
			return validationError("a rejected work order stays under review")
		}
		reason := strings.TrimSpace(*input.ReasonRejection)
		if reason == "" {
			return validationError("workOrderReasonRejection must not be empty")
		}
		next.ReasonRejection = &reason
	}
	return nil
}

// tasksCompleted reports whether every task of the order is Completed. An
// order without tasks has nothing left to do.
func (s *WorkOrderService) tasksCompleted(ctx context.Context, workOrderID uuid.UUID) (bool, error) {
	tasks, err := s.stores.Tasks.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.Status != model.TaskStatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// checkOwnership restricts supervisors to orders they supervise and
// technicians to orders assigned to them.
func checkOwnership(principal model.Principal, wo *model.WorkOrder) error {
	switch principal.Role {
	case model.RoleSupervisor:
		if wo.SupervisorID == principal.UserID {
			return nil
		}
		return newError(ErrForbidden, "work order %s is supervised by another user", wo.Number)
	case model.RoleTechnician:
		if wo.IsAssignedTo(principal.UserID) {
			return nil
		}
		return newError(ErrForbidden, "work order %s is not assigned to you", wo.Number)
	}
	return newError(ErrForbidden, "%s may not act on work orders", principal.Role)
}

type UpdateWorkOrderInput struct {
	Description          *string  `json:"workOrderDescription"`
	ScheduledDate        *string  `json:"workOrderScheduledDate"`
	EstimatedDuration    *float64 `json:"workOrderEstimatedDuration"`
	AssignedTechnicianID *string  `json:"workOrderAssignedTechnician"`

	Number          *string `json:"workOrderNumber"`
	SupervisorID    *string `json:"workOrderSupervisor"`
	ClientID        *string `json:"clientId"`
	ServiceType     *string `json:"serviceType"`
	Status          *string `json:"workOrderStatus"`
	ReasonRejection *string `json:"workOrderReasonRejection"`
}

// Update edits the mutable fields of an order. An empty string for the date
// or technician clears it.
func (s *WorkOrderService) Update(ctx context.Context, principal model.Principal, id string, input UpdateWorkOrderInput) (*WorkOrderResult, error) {
	if err := policy.Authorize(principal.Role, policy.OpUpdateWorkOrder); err != nil {
		return nil, storeError(err, "work order")
	}
	woID, err := parseID(id, "work order id")
	if err != nil {
		return nil, err
	}
	if input.Status != nil || input.ReasonRejection != nil {
		return nil, validationError("status changes go through the status endpoint")
	}

	var (
		wo         *model.WorkOrder
		changes    changeSet
		tasks      []model.WorkOrderTask
		technician *model.User
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, workOrderLockKey(woID)); err != nil {
			return err
		}
		current, err := s.stores.WorkOrders.GetByID(ctx, woID)
		if err != nil {
			return err
		}
		if err := checkOwnership(principal, current); err != nil {
			return err
		}
		if err := rejectImmutable(current, input); err != nil {
			return err
		}

		next := *current
		if err := s.applyEdits(&next, input); err != nil {
			return err
		}

		changes = changeSet{}
		changes.track("workOrderDescription", current.Description, next.Description)
		changes.track("workOrderScheduledDate", current.ScheduledDate, next.ScheduledDate)
		changes.track("workOrderEstimatedDuration", current.EstimatedDuration, next.EstimatedDuration)
		changes.track("workOrderAssignedTechnician", current.AssignedTechnicianID, next.AssignedTechnicianID)
		if changes.empty() {
			return newError(ErrNoChanges, "no changes detected")
		}

		_, dateChanged := changes["workOrderScheduledDate"]
		_, durationChanged := changes["workOrderEstimatedDuration"]
		_, technicianChanged := changes["workOrderAssignedTechnician"]
		scheduleChanged := dateChanged || durationChanged || technicianChanged

		if scheduleChanged && current.Status != model.WorkOrderStatusUnassigned && current.Status != model.WorkOrderStatusAssigned {
			return validationError("schedule can only change before work starts")
		}
		if dateChanged && next.ScheduledDate != nil {
			if err := policy.ScheduleWindow(*next.ScheduledDate, s.now().UTC(), s.settings.SchedulingWindow); err != nil {
				return validationError("%s", err.Error())
			}
		}
		if technicianChanged && next.AssignedTechnicianID != nil {
			if technician, err = s.userWithRole(ctx, *next.AssignedTechnicianID, model.RoleTechnician, "workOrderAssignedTechnician"); err != nil {
				return err
			}
		}
		if scheduleChanged && next.IsSchedulable() {
			if err := s.stores.Tx.AdvisoryLock(ctx, technicianLockKey(*next.AssignedTechnicianID)); err != nil {
				return err
			}
			if err := s.checkOverlap(ctx, &next, &next.ID); err != nil {
				return err
			}
		}

		switch {
		case next.Status == model.WorkOrderStatusUnassigned && next.IsSchedulable():
			next.Status = model.WorkOrderStatusAssigned
		case next.Status == model.WorkOrderStatusAssigned && !next.IsSchedulable():
			next.Status = model.WorkOrderStatusUnassigned
		}
		changes.track("workOrderStatus", current.Status, next.Status)

		if err := s.stores.WorkOrders.Update(ctx, &next); err != nil {
			return err
		}
		if technicianChanged {
			if err := s.reassignTasks(ctx, &next); err != nil {
				return err
			}
		}
		if next.Status == model.WorkOrderStatusAssigned {
			if tasks, err = s.instantiateTasks(ctx, &next); err != nil {
				return err
			}
		}
		wo = &next
		return nil
	})
	if err != nil {
		return nil, storeError(err, "work order")
	}

	s.audit.record(ctx, principalActor(principal), model.AuditActionUpdate, model.AuditModelWorkOrder, wo.ID.String(), changes)

	message := "Work order updated successfully."
	if technician != nil {
		message = s.notifyAssignment(ctx, wo, technician, message)
	}
	return &WorkOrderResult{WorkOrder: wo, Tasks: tasks, Message: message}, nil
}

func rejectImmutable(current *model.WorkOrder, input UpdateWorkOrderInput) error {
	immutable := []struct {
		field string
		sent  *string
		have  string
	}{
		{"workOrderNumber", input.Number, current.Number},
		{"workOrderSupervisor", input.SupervisorID, current.SupervisorID.String()},
		{"clientId", input.ClientID, current.ClientID.String()},
		{"serviceType", input.ServiceType, string(current.ServiceType)},
	}
	for _, f := range immutable {
		if f.sent != nil && strings.TrimSpace(*f.sent) != f.have {
			return validationError("%s cannot be changed", f.field)
		}
	}
	return nil
}

func (s *WorkOrderService) applyEdits(next *model.WorkOrder, input UpdateWorkOrderInput) error {
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return validationError("workOrderDescription must not be empty")
		}
		next.Description = description
	}
	if input.EstimatedDuration != nil {
		if err := validateDuration(*input.EstimatedDuration); err != nil {
			return err
		}
		next.EstimatedDuration = *input.EstimatedDuration
	}
	if input.ScheduledDate != nil {
		scheduled, err := parseOptionalTimestamp(input.ScheduledDate, "workOrderScheduledDate")
		if err != nil {
			return err
		}
		next.ScheduledDate = scheduled
	}
	if input.AssignedTechnicianID != nil {
		technicianID, err := parseOptionalID(input.AssignedTechnicianID, "workOrderAssignedTechnician")
		if err != nil {
			return err
		}
		next.AssignedTechnicianID = technicianID
	}
	return nil
}

// reassignTasks moves the technician record of existing tasks to the order's
// current technician.
func (s *WorkOrderService) reassignTasks(ctx context.Context, wo *model.WorkOrder) error {
	tasks, err := s.stores.Tasks.ListByWorkOrder(ctx, wo.ID)
	if err != nil {
		return err
	}
	for i := range tasks {
		task := &tasks[i]
		if wo.AssignedTechnicianID == nil {
			task.TechnicianID = nil
		} else {
			techID := *wo.AssignedTechnicianID
			task.TechnicianID = &techID
		}
		if err := s.stores.Tasks.Update(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an order. Its tasks are left in place and only counted.
func (s *WorkOrderService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if err := policy.Authorize(principal.Role, policy.OpDeleteWorkOrder); err != nil {
		return storeError(err, "work order")
	}
	woID, err := parseID(id, "work order id")
	if err != nil {
		return err
	}

	var (
		wo       *model.WorkOrder
		orphaned int64
	)
	err = s.stores.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stores.Tx.AdvisoryLock(ctx, workOrderLockKey(woID)); err != nil {
			return err
		}
		current, err := s.stores.WorkOrders.GetByID(ctx, woID)
		if err != nil {
			return err
		}
		if err := checkOwnership(principal, current); err != nil {
			return err
		}
		if orphaned, err = s.stores.Tasks.CountByWorkOrder(ctx, woID); err != nil {
			return err
		}
		wo = current
		return s.stores.WorkOrders.Delete(ctx, woID)
	})
	if err != nil {
		return storeError(err, "work order")
	}

	if orphaned > 0 {
		s.log.Warn().
			Str("work_order_id", wo.ID.String()).
			Int64("tasks", orphaned).
			Msg("work order deleted with tasks left behind")
	}
	s.audit.record(ctx, principalActor(principal), model.AuditActionDelete, model.AuditModelWorkOrder, wo.ID.String(),
		map[string]any{"workOrderNumber": wo.Number, "orphanedTasks": orphaned})
	return nil
}
