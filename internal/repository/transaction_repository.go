package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository/common"
)

const transactionColumns = `id, job_id, gateway_order_id, payer_id, payee_id, amount, tip, commission,
	giver_fee, total_paid_by_giver, payout_to_installer, status, settlement, settlement_version,
	created_at, funded_at, settled_at`

// TransactionRepository хранит escrow транзакции. Все смены статуса - compare-and-set.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create вставляет транзакцию в статусе initiated, если у заказа нет активной.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO escrow_transactions (job_id, gateway_order_id, payer_id, payee_id, amount, tip,
			commission, giver_fee, total_paid_by_giver, payout_to_installer, status)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		WHERE NOT EXISTS (
			SELECT 1 FROM escrow_transactions WHERE job_id = $1 AND status IN ($12, $13)
		)
		RETURNING id, status, settlement_version, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		tx.JobID, tx.GatewayOrderID, tx.PayerID, tx.PayeeID, tx.Amount, tx.Tip,
		tx.Commission, tx.GiverFee, tx.TotalPaidByGiver, tx.PayoutToInstaller,
		valueobject.TransactionStatusInitiated,
		valueobject.TransactionStatusFunded, valueobject.TransactionStatusDisputed,
	).Scan(&tx.ID, &tx.Status, &tx.SettlementVersion, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateActiveTransaction
	}
	if err != nil {
		return fmt.Errorf("transaction repository: create %w", mapConstraintError(err))
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return common.GetByID[models.Transaction](ctx, r.db, "escrow_transactions", transactionColumns, id, ErrTransactionNotFound)
}

// FindActiveByJob возвращает самую свежую транзакцию заказа в одном из статусов.
// Без статусов ищет среди активных (funded, disputed).
func (r *TransactionRepository) FindActiveByJob(ctx context.Context, jobID uuid.UUID, statuses ...valueobject.TransactionStatus) (*models.Transaction, error) {
	if len(statuses) == 0 {
		statuses = valueobject.ActiveTransactionStatuses
	}
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	query, args, err := sqlx.In(`
		SELECT `+transactionColumns+` FROM escrow_transactions
		WHERE job_id = ? AND status IN (?)
		ORDER BY created_at DESC
		LIMIT 1
	`, jobID, values)
	if err != nil {
		return nil, fmt.Errorf("transaction repository: build find active %w", err)
	}

	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction repository: find active %w", err)
	}
	return &tx, nil
}

// FindLatestByJob - последняя транзакция заказа в любом статусе.
func (r *TransactionRepository) FindLatestByJob(ctx context.Context, jobID uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM escrow_transactions WHERE job_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &tx, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("transaction repository: find latest %w", err)
	}
	return &tx, nil
}

// Transition переводит транзакцию from -> to, только если текущий статус равен from.
// Переход заказа и открытие спора из patch применяются в той же транзакции БД.
func (r *TransactionRepository) Transition(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, patch models.TransactionPatch) (*models.Transaction, error) {
	if !from.CanTransitionTo(to) {
		return nil, ErrIllegalTransition
	}

	var updated models.Transaction
	err := common.WithTransaction(ctx, r.db, func(dbTx *sqlx.Tx) error {
		query := `
			UPDATE escrow_transactions
			SET status = $3,
				gateway_order_id = COALESCE($4, gateway_order_id),
				funded_at = COALESCE($5, funded_at)
			WHERE id = $1 AND status = $2
			RETURNING ` + transactionColumns
		if err := dbTx.GetContext(ctx, &updated, query, id, from, to, patch.GatewayOrderID, patch.FundedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.staleOrMissing(ctx, dbTx, id)
			}
			return mapConstraintError(err)
		}

		if patch.Job != nil {
			if err := transitionJob(ctx, dbTx, *patch.Job); err != nil {
				return err
			}
		}
		if patch.OpenDispute != nil {
			patch.OpenDispute.TransactionID = id
			if err := insertDispute(ctx, dbTx, patch.OpenDispute); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("transition", err)
	}
	return &updated, nil
}

// Settle атомарно закрывает сделку: CAS статуса транзакции с записью settlement,
// CAS статуса заказа, закрытие спора и начисление долга исполнителю.
// Проигравший в гонке получает ErrStaleState, ничего не записав.
func (r *TransactionRepository) Settle(ctx context.Context, commit models.SettlementCommit) (*models.Transaction, error) {
	if !commit.From.CanTransitionTo(commit.To) {
		return nil, ErrIllegalTransition
	}

	var updated models.Transaction
	err := common.WithTransaction(ctx, r.db, func(dbTx *sqlx.Tx) error {
		query := `
			UPDATE escrow_transactions
			SET status = $3,
				settlement = $4,
				settlement_version = settlement_version + 1,
				settled_at = $5
			WHERE id = $1 AND status = $2
			RETURNING ` + transactionColumns
		settledAt := commit.Settlement.SettledAt
		if settledAt.IsZero() {
			settledAt = time.Now()
		}
		if err := dbTx.GetContext(ctx, &updated, query, commit.TransactionID, commit.From, commit.To, commit.Settlement, settledAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.staleOrMissing(ctx, dbTx, commit.TransactionID)
			}
			return err
		}

		if err := transitionJob(ctx, dbTx, commit.Job); err != nil {
			return err
		}

		if d := commit.Dispute; d != nil {
			res, err := dbTx.ExecContext(ctx, `
				UPDATE disputes
				SET status = $2, resolution = $3, split_percentage = $4, resolved_by = $5, resolved_at = $6
				WHERE id = $1 AND status = $7
			`, d.DisputeID, models.DisputeStatusResolved, d.Resolution, d.SplitPercentage, d.ResolvedBy, settledAt, models.DisputeStatusOpen)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrStaleState
			}
		}

		if debt := commit.Debt; debt != nil && debt.Amount > 0 {
			res, err := dbTx.ExecContext(ctx, `
				UPDATE users SET platform_debt = platform_debt + $2, updated_at = NOW() WHERE id = $1
			`, debt.UserID, debt.Amount)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrUserNotFound
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("settle", err)
	}
	return &updated, nil
}

// RecordRails сохраняет исходы рельсов. Запись проходит, только если версия
// settlement не изменилась с момента чтения. Возвращает новую версию.
func (r *TransactionRepository) RecordRails(ctx context.Context, id uuid.UUID, version int, settlement models.Settlement) (int, error) {
	var next int
	err := r.db.QueryRowxContext(ctx, `
		UPDATE escrow_transactions
		SET settlement = $3, settlement_version = settlement_version + 1
		WHERE id = $1 AND settlement_version = $2
		RETURNING settlement_version
	`, id, version, settlement).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrStaleState
	}
	if err != nil {
		return 0, fmt.Errorf("transaction repository: record rails %w", err)
	}
	return next, nil
}

// ListNeedingReconciliation - закрытые сделки, у которых рельс не подтверждён.
func (r *TransactionRepository) ListNeedingReconciliation(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var txs []models.Transaction
	query := `
		SELECT ` + transactionColumns + ` FROM escrow_transactions
		WHERE settlement IS NOT NULL
			AND (settlement->'refund'->>'status' IN ('pending', 'failed', 'unknown')
				OR settlement->'payout'->>'status' IN ('pending', 'failed', 'unknown'))
		ORDER BY settled_at ASC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &txs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("transaction repository: list reconciliation %w", err)
	}
	return txs, nil
}

// staleOrMissing различает отсутствие транзакции и проигранную гонку.
func (r *TransactionRepository) staleOrMissing(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) error {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS(SELECT 1 FROM escrow_transactions WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return ErrTransactionNotFound
	}
	return ErrStaleState
}

// transitionJob - CAS статуса заказа внутри транзакции БД.
func transitionJob(ctx context.Context, ext sqlx.ExtContext, t models.JobTransition) error {
	if !t.From.CanTransitionTo(t.To) {
		return ErrIllegalTransition
	}
	res, err := ext.ExecContext(ctx, `
		UPDATE jobs
		SET status = $3, cancellation_reason = COALESCE($4, cancellation_reason), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, t.JobID, t.From, t.To, t.Reason)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// wrapStoreError оставляет доменные ошибки как есть, остальные оборачивает.
func wrapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, ErrStaleState),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrIllegalTransition),
		errors.Is(err, ErrDuplicateActiveTransaction),
		errors.Is(err, ErrDisputeAlreadyOpen):
		return err
	}
	return fmt.Errorf("transaction repository: %s %w", op, mapConstraintError(err))
}
