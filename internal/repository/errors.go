package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrJobNotFound                = errors.New("job not found")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrDisputeNotFound            = errors.New("dispute not found")
	ErrUserNotFound               = errors.New("user not found")
	ErrAlertNotFound              = errors.New("alert not found")
	ErrNotificationNotFound       = errors.New("notification not found")
	ErrStaleState                 = errors.New("stale state: status changed concurrently")
	ErrDuplicateActiveTransaction = errors.New("job already has an active transaction")
	ErrDisputeAlreadyOpen         = errors.New("job already has an open dispute")
	ErrIllegalTransition          = errors.New("illegal status transition")
)

const (
	pqUniqueViolation = "23505"

	uniqueActiveTransaction = "uq_escrow_transactions_active_job"
	uniqueOpenDispute       = "uq_disputes_open_job"
)

// uniqueViolation возвращает имя нарушенного уникального индекса.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// mapConstraintError переводит нарушения инвариантов БД в доменные ошибки.
func mapConstraintError(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case uniqueActiveTransaction:
		return ErrDuplicateActiveTransaction
	case uniqueOpenDispute:
		return ErrDisputeAlreadyOpen
	}
	return err
}
