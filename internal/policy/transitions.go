package policy

import (
	"errors"
	"fmt"

	"workorder-service/internal/model"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Facts are the cross-entity conditions a transition guard may depend on.
type Facts struct {
	Rejected       bool
	Scheduled      bool
	TasksCompleted bool
}

type guard func(Facts) string

type transitionKey struct {
	from model.WorkOrderStatus
	role model.Role
	to   model.WorkOrderStatus
}

const (
	unassigned  = model.WorkOrderStatusUnassigned
	assigned    = model.WorkOrderStatusAssigned
	inProgress  = model.WorkOrderStatusInProgress
	underReview = model.WorkOrderStatusUnderReview
	approved    = model.WorkOrderStatusApproved
)

func requireScheduled(f Facts) string {
	if !f.Scheduled {
		return "a technician, scheduled date and duration are required before assignment"
	}
	return ""
}

func requireTasksCompleted(f Facts) string {
	if !f.TasksCompleted {
		return "all tasks must be completed before the work order can be reviewed"
	}
	return ""
}

func requireRejected(f Facts) string {
	if !f.Rejected {
		return "work order under review can only be reopened after a rejection"
	}
	return ""
}

func all(guards ...guard) guard {
	return func(f Facts) string {
		for _, g := range guards {
			if reason := g(f); reason != "" {
				return reason
			}
		}
		return ""
	}
}

// requestable lists the target states each role may ask for at all.
var requestable = map[model.Role]map[model.WorkOrderStatus]bool{
	model.RoleSupervisor: {unassigned: true, assigned: true, approved: true},
	model.RoleTechnician: {assigned: true, inProgress: true, underReview: true},
}

var transitions = map[transitionKey]guard{
	{unassigned, model.RoleSupervisor, assigned}:  requireScheduled,
	{assigned, model.RoleSupervisor, unassigned}:  nil,
	{inProgress, model.RoleSupervisor, assigned}:  nil,
	{underReview, model.RoleSupervisor, assigned}: nil,
	{underReview, model.RoleSupervisor, approved}: nil,

	{assigned, model.RoleTechnician, inProgress}:     nil,
	{assigned, model.RoleTechnician, underReview}:    requireTasksCompleted,
	{inProgress, model.RoleTechnician, assigned}:     nil,
	{inProgress, model.RoleTechnician, underReview}:  requireTasksCompleted,
	{underReview, model.RoleTechnician, assigned}:    requireRejected,
	{underReview, model.RoleTechnician, inProgress}:  requireRejected,
	{underReview, model.RoleTechnician, underReview}: all(requireRejected, requireTasksCompleted),
}

// CheckTransition consults the transition table. ErrDenied means the role can
// never request the target state; ErrInvalidTransition means it cannot do so
// from the current state or a guard failed.
func CheckTransition(role model.Role, from, to model.WorkOrderStatus, facts Facts) error {
	if !requestable[role][to] {
		return fmt.Errorf("%s may not set status %q: %w", roleName(role), to, ErrDenied)
	}

	g, ok := transitions[transitionKey{from: from, role: role, to: to}]
	if !ok {
		return fmt.Errorf("cannot move work order from %q to %q: %w", from, to, ErrInvalidTransition)
	}
	if g != nil {
		if reason := g(facts); reason != "" {
			return fmt.Errorf("%s: %w", reason, ErrInvalidTransition)
		}
	}
	return nil
}

// CheckRejection decides whether role may attach a rejection reason to a work
// order currently in status.
func CheckRejection(role model.Role, status model.WorkOrderStatus) error {
	if role != model.RoleSupervisor {
		return fmt.Errorf("%s may not reject a work order: %w", roleName(role), ErrDenied)
	}
	if status != underReview {
		return fmt.Errorf("only work orders under review can be rejected: %w", ErrInvalidTransition)
	}
	return nil
}

// ClearsRejection reports whether a status request drops any pending
// rejection reason. A rejection only lives on a work order under review, so
// every real move clears it, as does a technician resubmitting for review.
func ClearsRejection(role model.Role, from, to model.WorkOrderStatus) bool {
	return from != to || role == model.RoleTechnician
}
