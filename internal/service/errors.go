package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"workorder-service/internal/model"
	"workorder-service/internal/policy"
	"workorder-service/internal/repository"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrReferentialIntegrity = errors.New("referential integrity error")
	ErrSchedulingConflict   = errors.New("scheduling conflict")
	ErrNoChanges            = errors.New("no changes detected")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrNotificationFailed   = errors.New("notification failed")
)

// Error pairs one of the sentinel kinds with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func notFound(entity string) error {
	return newError(ErrNotFound, "%s not found", entity)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// storeError translates repository and policy failures into service kinds.
// entity names the record for not-found messages.
func storeError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity)
	case errors.Is(err, repository.ErrDuplicateKey):
		constraint, _ := repository.DuplicateConstraint(err)
		return newError(ErrDuplicateKey, "%s", duplicateMessage(entity, constraint))
	case errors.Is(err, repository.ErrForeignKey):
		return newError(ErrReferentialIntegrity, "%s references a record that does not exist", entity)
	case errors.Is(err, repository.ErrInvalidValue):
		return newError(ErrValidation, "%s has an invalid value", entity)
	case errors.Is(err, model.ErrSupervisorObservationRequired):
		return newError(ErrValidation, "%s", err.Error())
	case errors.Is(err, policy.ErrDenied):
		return newError(ErrForbidden, "%s", err.Error())
	case errors.Is(err, policy.ErrInvalidTransition):
		return newError(ErrValidation, "%s", err.Error())
	}
	return err
}

func duplicateMessage(entity, constraint string) string {
	switch constraint {
	case repository.ConstraintClientEmail:
		return "a client with this email already exists"
	case repository.ConstraintClientCompany:
		return "a client with this company name already exists"
	case repository.ConstraintUserEmail:
		return "a user with this email already exists"
	case repository.ConstraintUserFullName:
		return "a user with this full name already exists"
	case repository.ConstraintWorkOrderNumber, repository.ConstraintWorkOrderSequence:
		return "work order number already taken"
	}
	return fmt.Sprintf("%s already exists", entity)
}
