package valueobject

import "github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"

type JobStatus string

const (
	JobStatusOpen                JobStatus = "open"
	JobStatusAwarded             JobStatus = "awarded"
	JobStatusFunded              JobStatus = "funded"
	JobStatusPendingConfirmation JobStatus = "pending_confirmation"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusCancelled           JobStatus = "cancelled"
	JobStatusDisputed            JobStatus = "disputed"
)

// jobTransitions - единственная таблица допустимых переходов заказа.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:                {JobStatusAwarded},
	JobStatusAwarded:             {JobStatusFunded, JobStatusCancelled},
	JobStatusFunded:              {JobStatusPendingConfirmation, JobStatusDisputed, JobStatusCancelled, JobStatusCompleted},
	JobStatusPendingConfirmation: {JobStatusCompleted, JobStatusDisputed},
	JobStatusDisputed:            {JobStatusCancelled, JobStatusCompleted},
	JobStatusCompleted:           {},
	JobStatusCancelled:           {},
}

func (s JobStatus) IsValid() bool {
	_, ok := jobTransitions[s]
	return ok
}

// IsTerminal - заказ закрыт и привязан к терминальной транзакции.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	for _, status := range jobTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "initiated"
	TransactionStatusFunded    TransactionStatus = "funded"
	TransactionStatusDisputed  TransactionStatus = "disputed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusResolved  TransactionStatus = "resolved"
)

// Статусы движутся только вперёд.
var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusInitiated: {TransactionStatusFunded},
	TransactionStatusFunded:    {TransactionStatusDisputed, TransactionStatusRefunded, TransactionStatusCompleted},
	TransactionStatusDisputed:  {TransactionStatusResolved},
	TransactionStatusRefunded:  {},
	TransactionStatusCompleted: {},
	TransactionStatusResolved:  {},
}

// ActiveTransactionStatuses - не более одной такой транзакции на заказ.
var ActiveTransactionStatuses = []TransactionStatus{TransactionStatusFunded, TransactionStatusDisputed}

func (s TransactionStatus) IsValid() bool {
	_, ok := transactionTransitions[s]
	return ok
}

func (s TransactionStatus) IsActive() bool {
	return s == TransactionStatusFunded || s == TransactionStatusDisputed
}

func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusRefunded, TransactionStatusCompleted, TransactionStatusResolved:
		return true
	}
	return false
}

func (s TransactionStatus) CanTransitionTo(newStatus TransactionStatus) bool {
	for _, status := range transactionTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}
