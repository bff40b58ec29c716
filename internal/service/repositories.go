package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// TransactionStore - хранилище escrow транзакций с compare-and-set переходами.
type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindActiveByJob(ctx context.Context, jobID uuid.UUID, statuses ...valueobject.TransactionStatus) (*models.Transaction, error)
	FindLatestByJob(ctx context.Context, jobID uuid.UUID) (*models.Transaction, error)
	Transition(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, patch models.TransactionPatch) (*models.Transaction, error)
	Settle(ctx context.Context, commit models.SettlementCommit) (*models.Transaction, error)
	RecordRails(ctx context.Context, id uuid.UUID, version int, settlement models.Settlement) (int, error)
	ListNeedingReconciliation(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, t models.JobTransition) error
	Award(ctx context.Context, jobID, installerID uuid.UUID, bidAmount, tip int64, startAt *time.Time) (*models.Job, error)
	MarkWorkStarted(ctx context.Context, jobID uuid.UUID, at time.Time) error
}

type DisputeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
}

// SettingsStore отдаёт свежий снимок ставок для каждой операции.
type SettingsStore interface {
	Current(ctx context.Context) (models.RatesSnapshot, error)
	Update(ctx context.Context, rates *models.RatesSnapshot) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetPayoutProfile(ctx context.Context, id uuid.UUID) (*models.PayoutProfile, error)
}

// EventNotifier доставляет события сделки участникам без ожидания результата.
type EventNotifier interface {
	Notify(ctx context.Context, event models.SettlementEvent) error
}
