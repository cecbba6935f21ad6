package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
)

func TestCreateScheduledWorkOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 2, 1.5))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wo := res.WorkOrder

	if wo.Number != "0001-2025" {
		t.Fatalf("number = %q, want 0001-2025", wo.Number)
	}
	if wo.Status != model.WorkOrderStatusAssigned {
		t.Fatalf("status = %q, want Assigned", wo.Status)
	}
	if wo.SupervisorID != f.supervisor.UserID {
		t.Fatalf("supervisor defaulted to %s", wo.SupervisorID)
	}
	if wo.Address != "1 Main St" || wo.ClientEmail != "ops@acme.test" || wo.ContactPerson != "Carla Contact" {
		t.Fatalf("client snapshot not copied: %+v", wo)
	}
	if !wo.Location.Data().Equal(model.NewGeoPoint(-70.6, -33.4)) {
		t.Fatalf("location not copied: %+v", wo.Location.Data())
	}
	if res.Message != "Work order created successfully. Technician notified." {
		t.Fatalf("message = %q", res.Message)
	}

	tasks, err := f.store.Tasks().ListByWorkOrder(f.ctx, wo.ID)
	if err != nil {
		t.Fatalf("ListByWorkOrder: %v", err)
	}
	wantDesc := []string{"Check breaker panel", "Photograph meter", "Collect customer signature"}
	if len(tasks) != len(wantDesc) {
		t.Fatalf("expected %d tasks, got %d", len(wantDesc), len(tasks))
	}
	for i, task := range tasks {
		if task.Ordering != i+1 || task.Description != wantDesc[i] {
			t.Fatalf("task %d = %d %q", i, task.Ordering, task.Description)
		}
		if task.Status != model.TaskStatusPending {
			t.Fatalf("task %d status = %q", i, task.Status)
		}
		if task.TechnicianID == nil || *task.TechnicianID != f.technician.UserID {
			t.Fatalf("task %d technician not set", i)
		}
	}

	n, ok := f.notifier.last()
	if !ok {
		t.Fatalf("expected a notification")
	}
	if n.Event != EventWorkOrderAssigned || n.Recipient.UserID != f.technician.UserID {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !strings.Contains(n.Body, "0001-2025") || !strings.Contains(n.Subject, "0001-2025") {
		t.Fatalf("notification does not mention the number: %q / %q", n.Subject, n.Body)
	}

	entries := f.auditEntries(model.AuditModelWorkOrder)
	if len(entries) != 1 || entries[0].Action != model.AuditActionCreate {
		t.Fatalf("expected one CREATE audit entry, got %+v", entries)
	}
	if entries[0].User != f.supervisor.UserID.String() {
		t.Fatalf("audit actor = %q", entries[0].User)
	}
	if !strings.Contains(string(entries[0].Changes), `"workOrderNumber":"0001-2025"`) {
		t.Fatalf("audit changes missing number: %s", entries[0].Changes)
	}
}

func TestCreateUnscheduledWorkOrderStaysUnassigned(t *testing.T) {
	f := newFixture(t)

	res, err := f.workOrders.Create(f.ctx, f.supervisor, CreateWorkOrderInput{
		ClientID:    f.client.ID.String(),
		Description: "Replace meter",
		ServiceType: string(model.ServiceTypeInspection),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.WorkOrder.Status != model.WorkOrderStatusUnassigned {
		t.Fatalf("status = %q", res.WorkOrder.Status)
	}
	if res.WorkOrder.EstimatedDuration != model.DefaultEstimatedDuration {
		t.Fatalf("duration = %v, want default", res.WorkOrder.EstimatedDuration)
	}
	if len(res.Tasks) != 0 {
		t.Fatalf("unassigned order should have no tasks, got %d", len(res.Tasks))
	}
	if res.Message != "Work order created successfully." {
		t.Fatalf("message = %q", res.Message)
	}
	if _, ok := f.notifier.last(); ok {
		t.Fatalf("no technician, no notification expected")
	}
}

func TestCreateWorkOrderRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name      string
		principal model.Principal
		mutate    func(*CreateWorkOrderInput)
		kind      error
	}{
		{"technician caller", f.technician, func(*CreateWorkOrderInput) {}, ErrForbidden},
		{"administrator caller", f.admin, func(*CreateWorkOrderInput) {}, ErrForbidden},
		{"empty description", f.supervisor, func(in *CreateWorkOrderInput) { in.Description = "  " }, ErrValidation},
		{"unknown service type", f.supervisor, func(in *CreateWorkOrderInput) { in.ServiceType = "Repair" }, ErrValidation},
		{"duration too short", f.supervisor, func(in *CreateWorkOrderInput) { in.EstimatedDuration = ptr(0.1) }, ErrValidation},
		{"duration too long", f.supervisor, func(in *CreateWorkOrderInput) { in.EstimatedDuration = ptr(8.5) }, ErrValidation},
		{"date in the past", f.supervisor, func(in *CreateWorkOrderInput) { in.ScheduledDate = f.at(-1) }, ErrValidation},
		{"date beyond window", f.supervisor, func(in *CreateWorkOrderInput) { in.ScheduledDate = f.at(7*24 + 1) }, ErrValidation},
		{"malformed date", f.supervisor, func(in *CreateWorkOrderInput) { in.ScheduledDate = ptr("tomorrow") }, ErrValidation},
		{"malformed client", f.supervisor, func(in *CreateWorkOrderInput) { in.ClientID = "nope" }, ErrValidation},
		{"unknown client", f.supervisor, func(in *CreateWorkOrderInput) { in.ClientID = f.admin.UserID.String() }, ErrNotFound},
		{"technician is a supervisor", f.supervisor, func(in *CreateWorkOrderInput) {
			in.AssignedTechnicianID = ptr(f.supervisor2.UserID.String())
		}, ErrReferentialIntegrity},
		{"supervisor is a technician", f.supervisor, func(in *CreateWorkOrderInput) {
			in.SupervisorID = ptr(f.technician2.UserID.String())
		}, ErrReferentialIntegrity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.scheduledInput(f.technician, 2, 1)
			tc.mutate(&in)
			_, err := f.workOrders.Create(f.ctx, tc.principal, in)
			expectKind(t, err, tc.kind)
		})
	}

	if got := f.auditEntries(model.AuditModelWorkOrder); len(got) != 0 {
		t.Fatalf("failed creates must not be audited, got %d entries", len(got))
	}
}

func TestCreateWorkOrderDetectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.createScheduled(f.technician, 1, 2) // 09:00-11:00

	_, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 2, 1))
	expectKind(t, err, ErrSchedulingConflict)

	// touching bookings are allowed with the strict boundary
	if _, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 3, 1)); err != nil {
		t.Fatalf("touching booking rejected: %v", err)
	}

	// a different technician is free
	if _, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician2, 1, 2)); err != nil {
		t.Fatalf("other technician rejected: %v", err)
	}
}

func TestOverlapFindsLongEarlierBooking(t *testing.T) {
	f := newFixture(t)
	f.createScheduled(f.technician, 1, 8) // 09:00-17:00

	_, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 6, 1))
	expectKind(t, err, ErrSchedulingConflict)
}

func TestInclusiveBoundaryRejectsTouchingBookings(t *testing.T) {
	f := newFixture(t, withBoundary(policy.BoundaryInclusive))
	f.createScheduled(f.technician, 1, 2)

	_, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 3, 1))
	expectKind(t, err, ErrSchedulingConflict)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.workOrders.Create(f.ctx, f.supervisor, CreateWorkOrderInput{
				ClientID:    f.client.ID.String(),
				Description: fmt.Sprintf("job %d", i),
				ServiceType: string(model.ServiceTypeMaintenance),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[res.WorkOrder.Number] = true
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("concurrent create failed: %v", errs[0])
	}
	if len(numbers) != n {
		t.Fatalf("expected %d distinct numbers, got %d", n, len(numbers))
	}
	for i := 1; i <= n; i++ {
		want := model.FormatWorkOrderNumber(i, 2025)
		if !numbers[want] {
			t.Fatalf("missing number %s", want)
		}
	}
}

func TestConcurrentCreatesForOneSlotAdmitOne(t *testing.T) {
	f := newFixture(t)
	const n = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 4, 2))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrSchedulingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || conflicts != n-1 {
		t.Fatalf("created=%d conflicts=%d", created, conflicts)
	}
}

func TestCreateReportsNotificationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		Return(errors.New("broker unavailable"))

	f := newFixture(t, withNotifier(notifier))
	res, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 2, 1))
	if err != nil {
		t.Fatalf("Create must succeed when notification fails: %v", err)
	}
	want := "Work order created successfully. Technician notification failed: broker unavailable"
	if res.Message != want {
		t.Fatalf("message = %q, want %q", res.Message, want)
	}
	if _, err := f.store.WorkOrders().GetByID(f.ctx, res.WorkOrder.ID); err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
}

func TestNotificationCarriesAssignmentDetails(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	var got Notification
	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n Notification) error {
			got = n
			return nil
		})

	f := newFixture(t, withNotifier(notifier))
	f.createScheduled(f.technician, 2, 1)

	if got.Recipient.Email != f.technician.Email {
		t.Fatalf("recipient = %q", got.Recipient.Email)
	}
	if got.Data["Address"] != "1 Main St" || got.Data["Duration"] != "1" {
		t.Fatalf("unexpected data %+v", got.Data)
	}
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := NewMockAuditSink(ctrl)
	sink.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		Return(errors.New("audit store down")).
		Times(1)

	f := newFixture(t, withAuditSink(sink))
	if _, err := f.workOrders.Create(f.ctx, f.supervisor, f.scheduledInput(f.technician, 2, 1)); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestWorkOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 2)
	id := wo.ID.String()

	status := func(p model.Principal, s model.WorkOrderStatus) (*WorkOrderResult, error) {
		return f.workOrders.UpdateStatus(f.ctx, p, id, UpdateStatusInput{Status: ptr(string(s))})
	}

	if _, err := status(f.technician, model.WorkOrderStatusInProgress); err != nil {
		t.Fatalf("start work: %v", err)
	}
	_, err := status(f.technician, model.WorkOrderStatusUnderReview)
	expectKind(t, err, ErrValidation)

	f.completeAllTasks(wo.ID)
	if _, err := status(f.technician, model.WorkOrderStatusUnderReview); err != nil {
		t.Fatalf("submit for review: %v", err)
	}

	pending, err := f.workOrders.ListPendingApproval(f.ctx, f.supervisor)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending approval = %d, %v", len(pending), err)
	}

	res, err := f.workOrders.UpdateStatus(f.ctx, f.supervisor, id, UpdateStatusInput{ReasonRejection: ptr("photos are blurry")})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.WorkOrder.Status != model.WorkOrderStatusUnderReview || !res.WorkOrder.IsRejected() {
		t.Fatalf("rejection should keep the order under review with a reason: %+v", res.WorkOrder)
	}

	rejected, err := f.workOrders.ListRejected(f.ctx, f.technician)
	if err != nil || len(rejected) != 1 {
		t.Fatalf("rejected = %d, %v", len(rejected), err)
	}
	if pending, _ := f.workOrders.ListPendingApproval(f.ctx, f.supervisor); len(pending) != 0 {
		t.Fatalf("rejected order still pending approval")
	}

	res, err = status(f.technician, model.WorkOrderStatusUnderReview)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if res.WorkOrder.ReasonRejection != nil {
		t.Fatalf("resubmission must clear the reason")
	}

	res, err = status(f.supervisor, model.WorkOrderStatusApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.WorkOrder.Status != model.WorkOrderStatusApproved {
		t.Fatalf("status = %q", res.WorkOrder.Status)
	}

	updates := 0
	for _, e := range f.auditEntries(model.AuditModelWorkOrder) {
		if e.Action == model.AuditActionUpdate {
			updates++
		}
	}
	if updates != 5 {
		t.Fatalf("expected 5 UPDATE audit entries, got %d", updates)
	}
}

func TestReviewWaitsForRejectedTask(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)
	id := wo.ID.String()

	if _, err := f.workOrders.UpdateStatus(f.ctx, f.technician, id, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusInProgress))}); err != nil {
		t.Fatalf("start work: %v", err)
	}
	f.completeAllTasks(wo.ID)

	tasks, _ := f.store.Tasks().ListByWorkOrder(f.ctx, wo.ID)
	redo := tasks[0].ID.String()
	if _, err := f.tasks.UpdateTaskStatus(f.ctx, f.supervisor, redo, UpdateTaskStatusInput{
		Status:      string(model.TaskStatusRejected),
		Observation: ptr("seal is cracked"),
	}); err != nil {
		t.Fatalf("reject task: %v", err)
	}

	_, err := f.workOrders.UpdateStatus(f.ctx, f.technician, id, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusUnderReview))})
	expectKind(t, err, ErrValidation)

	if _, err := f.tasks.UpdateTaskStatus(f.ctx, f.technician, redo, UpdateTaskStatusInput{Status: string(model.TaskStatusCompleted)}); err != nil {
		t.Fatalf("redo task: %v", err)
	}
	if _, err := f.workOrders.UpdateStatus(f.ctx, f.technician, id, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusUnderReview))}); err != nil {
		t.Fatalf("submit for review: %v", err)
	}
}

func TestOrderWithoutTasksCanBeReviewed(t *testing.T) {
	f := newFixture(t)
	input := f.scheduledInput(f.technician, 2, 1)
	input.ServiceType = string(model.ServiceTypeMaintenance)
	res, err := f.workOrders.Create(f.ctx, f.supervisor, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.WorkOrder.ID.String()

	if tasks, _ := f.store.Tasks().ListByWorkOrder(f.ctx, res.WorkOrder.ID); len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
	for _, s := range []model.WorkOrderStatus{model.WorkOrderStatusInProgress, model.WorkOrderStatusUnderReview} {
		if _, err := f.workOrders.UpdateStatus(f.ctx, f.technician, id, UpdateStatusInput{Status: ptr(string(s))}); err != nil {
			t.Fatalf("move to %s: %v", s, err)
		}
	}
}

func TestUpdateStatusWithoutChange(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)

	_, err := f.workOrders.UpdateStatus(f.ctx, f.technician, wo.ID.String(), UpdateStatusInput{
		Status: ptr(string(model.WorkOrderStatusAssigned)),
	})
	expectKind(t, err, ErrNoChanges)

	_, err = f.workOrders.UpdateStatus(f.ctx, f.technician, wo.ID.String(), UpdateStatusInput{})
	expectKind(t, err, ErrValidation)
}

func TestUpdateStatusPermissions(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)
	id := wo.ID.String()

	cases := []struct {
		name      string
		principal model.Principal
		input     UpdateStatusInput
		kind      error
	}{
		{"technician approves", f.technician, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusApproved))}, ErrForbidden},
		{"other technician", f.technician2, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusInProgress))}, ErrForbidden},
		{"other supervisor", f.supervisor2, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusUnassigned))}, ErrForbidden},
		{"administrator", f.admin, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusUnassigned))}, ErrForbidden},
		{"technician rejects", f.technician, UpdateStatusInput{ReasonRejection: ptr("no")}, ErrForbidden},
		{"reject before review", f.supervisor, UpdateStatusInput{ReasonRejection: ptr("too early")}, ErrValidation},
		{"skip to review", f.supervisor, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusApproved))}, ErrValidation},
		{"unknown status", f.supervisor, UpdateStatusInput{Status: ptr("Done")}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.workOrders.UpdateStatus(f.ctx, tc.principal, id, tc.input)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestUpdateSchedulesUnassignedOrder(t *testing.T) {
	f := newFixture(t)
	res, err := f.workOrders.Create(f.ctx, f.supervisor, CreateWorkOrderInput{
		ClientID:    f.client.ID.String(),
		Description: "Inspect transformer",
		ServiceType: string(model.ServiceTypeInspection),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := res.WorkOrder.ID.String()

	_, err = f.workOrders.UpdateStatus(f.ctx, f.supervisor, id, UpdateStatusInput{Status: ptr(string(model.WorkOrderStatusAssigned))})
	expectKind(t, err, ErrValidation)

	updated, err := f.workOrders.Update(f.ctx, f.supervisor, id, UpdateWorkOrderInput{
		ScheduledDate:        f.at(5),
		AssignedTechnicianID: ptr(f.technician.UserID.String()),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.WorkOrder.Status != model.WorkOrderStatusAssigned {
		t.Fatalf("status = %q, want Assigned", updated.WorkOrder.Status)
	}
	if len(updated.Tasks) != 3 {
		t.Fatalf("expected tasks on assignment, got %d", len(updated.Tasks))
	}
	if !strings.HasSuffix(updated.Message, "Technician notified.") {
		t.Fatalf("message = %q", updated.Message)
	}

	_, err = f.workOrders.Update(f.ctx, f.supervisor, id, UpdateWorkOrderInput{
		ScheduledDate:        f.at(5),
		AssignedTechnicianID: ptr(f.technician.UserID.String()),
	})
	expectKind(t, err, ErrNoChanges)

	// a second assignment does not duplicate tasks
	if _, err := f.workOrders.Update(f.ctx, f.supervisor, id, UpdateWorkOrderInput{
		AssignedTechnicianID: ptr(f.technician2.UserID.String()),
	}); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	tasks, _ := f.store.Tasks().ListByWorkOrder(f.ctx, res.WorkOrder.ID)
	if len(tasks) != 3 {
		t.Fatalf("tasks duplicated: %d", len(tasks))
	}
	for _, task := range tasks {
		if task.TechnicianID == nil || *task.TechnicianID != f.technician2.UserID {
			t.Fatalf("task %d not reassigned", task.Ordering)
		}
	}
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)
	id := wo.ID.String()

	cases := []struct {
		name  string
		input UpdateWorkOrderInput
		kind  error
	}{
		{"service type", UpdateWorkOrderInput{ServiceType: ptr(string(model.ServiceTypeMaintenance))}, ErrValidation},
		{"number", UpdateWorkOrderInput{Number: ptr("0099-2025")}, ErrValidation},
		{"client", UpdateWorkOrderInput{ClientID: ptr(f.admin.UserID.String())}, ErrValidation},
		{"status", UpdateWorkOrderInput{Status: ptr(string(model.WorkOrderStatusApproved))}, ErrValidation},
		{"bad duration", UpdateWorkOrderInput{EstimatedDuration: ptr(9.0)}, ErrValidation},
		{"technician role", UpdateWorkOrderInput{AssignedTechnicianID: ptr(f.supervisor.UserID.String())}, ErrReferentialIntegrity},
		{"unchanged number", UpdateWorkOrderInput{Number: ptr(wo.Number)}, ErrNoChanges},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.workOrders.Update(f.ctx, f.supervisor, id, tc.input)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestUpdateDetectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.createScheduled(f.technician, 1, 2)
	other := f.createScheduled(f.technician, 5, 1)

	_, err := f.workOrders.Update(f.ctx, f.supervisor, other.ID.String(), UpdateWorkOrderInput{ScheduledDate: f.at(2)})
	expectKind(t, err, ErrSchedulingConflict)

	// moving an order within its own slot never conflicts with itself
	if _, err := f.workOrders.Update(f.ctx, f.supervisor, other.ID.String(), UpdateWorkOrderInput{EstimatedDuration: ptr(1.5)}); err != nil {
		t.Fatalf("extend own booking: %v", err)
	}
}

func TestDeleteWorkOrderLeavesTasks(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)

	err := f.workOrders.Delete(f.ctx, f.supervisor2, wo.ID.String())
	expectKind(t, err, ErrForbidden)

	if err := f.workOrders.Delete(f.ctx, f.supervisor, wo.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = f.workOrders.GetByID(f.ctx, f.supervisor, wo.ID.String())
	expectKind(t, err, ErrNotFound)

	count, _ := f.store.Tasks().CountByWorkOrder(f.ctx, wo.ID)
	if count != 3 {
		t.Fatalf("tasks should remain, got %d", count)
	}

	var deleted *model.AuditLog
	for _, e := range f.auditEntries(model.AuditModelWorkOrder) {
		if e.Action == model.AuditActionDelete {
			e := e
			deleted = &e
		}
	}
	if deleted == nil || !strings.Contains(string(deleted.Changes), `"orphanedTasks":3`) {
		t.Fatalf("delete audit should record orphaned tasks: %+v", deleted)
	}
}

func TestListingIsScopedByRole(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)

	mine, err := f.workOrders.List(f.ctx, f.supervisor)
	if err != nil || len(mine) != 1 {
		t.Fatalf("supervisor list = %d, %v", len(mine), err)
	}
	if other, _ := f.workOrders.List(f.ctx, f.supervisor2); len(other) != 0 {
		t.Fatalf("other supervisor sees %d orders", len(other))
	}
	if assigned, _ := f.workOrders.List(f.ctx, f.technician); len(assigned) != 1 {
		t.Fatalf("technician sees %d orders", len(assigned))
	}
	if none, _ := f.workOrders.List(f.ctx, f.technician2); len(none) != 0 {
		t.Fatalf("unassigned technician sees %d orders", len(none))
	}

	_, err = f.workOrders.List(f.ctx, f.admin)
	expectKind(t, err, ErrForbidden)

	_, err = f.workOrders.ListByTechnician(f.ctx, f.technician, f.technician2.UserID.String())
	expectKind(t, err, ErrForbidden)

	byTech, err := f.workOrders.ListByTechnician(f.ctx, f.supervisor, f.technician.UserID.String())
	if err != nil || len(byTech) != 1 {
		t.Fatalf("by technician = %d, %v", len(byTech), err)
	}
	byClient, err := f.workOrders.ListByClient(f.ctx, f.supervisor, f.client.ID.String())
	if err != nil || len(byClient) != 1 {
		t.Fatalf("by client = %d, %v", len(byClient), err)
	}

	_, err = f.workOrders.GetByID(f.ctx, f.technician2, wo.ID.String())
	expectKind(t, err, ErrForbidden)
}

func TestReportGroupsEvidenceByTask(t *testing.T) {
	f := newFixture(t)
	wo := f.createScheduled(f.technician, 2, 1)

	tasks, _ := f.store.Tasks().ListByWorkOrder(f.ctx, wo.ID)
	if _, err := f.tasks.AddEvidence(f.ctx, f.technician, tasks[0].ID.String(), AddEvidenceInput{
		Type: string(model.EvidenceTypePhoto),
		URL:  "https://files.test/panel.jpg",
	}); err != nil {
		t.Fatalf("AddEvidence: %v", err)
	}

	report, err := f.workOrders.Report(f.ctx, f.supervisor, wo.ID.String())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(report.Tasks) != 3 {
		t.Fatalf("report tasks = %d", len(report.Tasks))
	}
	for i, task := range report.Tasks {
		if task.Ordering != i+1 {
			t.Fatalf("report task %d ordering %d", i, task.Ordering)
		}
	}
	if len(report.Tasks[0].Evidences) != 1 || len(report.Tasks[1].Evidences) != 0 {
		t.Fatalf("evidence grouping wrong: %d / %d", len(report.Tasks[0].Evidences), len(report.Tasks[1].Evidences))
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"evidences":[]`) {
		t.Fatalf("tasks without evidence should render an empty list: %s", raw)
	}
	if !strings.Contains(string(raw), `"workOrderNumber":"0001-2025"`) {
		t.Fatalf("report should carry order fields: %s", raw)
	}

	_, err = f.workOrders.Report(f.ctx, f.technician2, wo.ID.String())
	expectKind(t, err, ErrForbidden)
}
