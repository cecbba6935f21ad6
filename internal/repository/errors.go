package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrForeignKey   = errors.New("foreign key violation")
	ErrInvalidValue = errors.New("invalid value")
)

// Constraint names, kept in sync with the migrations.
const (
	ConstraintWorkOrderNumber   = "uq_work_orders_number"
	ConstraintWorkOrderSequence = "uq_work_orders_year_sequence"
	ConstraintTaskOrdering      = "uq_work_order_tasks_ordering"
	ConstraintEvidenceOrdering  = "uq_task_evidences_ordering"
	ConstraintTemplateOrdering  = "uq_task_templates_ordering"
	ConstraintClientEmail       = "uq_clients_email"
	ConstraintClientCompany     = "uq_clients_company_name"
	ConstraintUserEmail         = "uq_users_email"
	ConstraintUserFullName      = "uq_users_full_name"
)

// ConstraintError carries the violated constraint name.
type ConstraintError struct {
	Kind       error
	Constraint string
	Detail     string
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s on %s", e.Kind, e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Kind
}

func NewDuplicateKeyError(constraint string) error {
	return &ConstraintError{Kind: ErrDuplicateKey, Constraint: constraint}
}

// DuplicateConstraint returns the constraint name when err is a duplicate key violation.
func DuplicateConstraint(err error) (string, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) && errors.Is(ce.Kind, ErrDuplicateKey) {
		return ce.Constraint, true
	}
	return "", false
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505":
		return &ConstraintError{Kind: ErrDuplicateKey, Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
	case "23503":
		return &ConstraintError{Kind: ErrForeignKey, Constraint: pgErr.ConstraintName, Detail: pgErr.Detail}
	case "23514", "23502", "22P02", "22001":
		return &ConstraintError{Kind: ErrInvalidValue, Constraint: pgErr.ConstraintName, Detail: pgErr.Message}
	}
	return err
}
