package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/db"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// newTestDB подключается к одноразовой базе из TEST_DATABASE_URL и накатывает миграции.
// Без переменной тесты с настоящим SQL пропускаются.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.RunMigrations(ctx, conn, "../../migrations"))
	return conn
}

// seedEscrow создаёт заказчика, исполнителя, заказ в jobStatus и транзакцию в txStatus.
func seedEscrow(t *testing.T, conn *sqlx.DB, jobStatus valueobject.JobStatus, txStatus valueobject.TransactionStatus) (jobID, txID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	var giverID, installerID uuid.UUID
	require.NoError(t, conn.GetContext(ctx, &giverID,
		`INSERT INTO users (email, role) VALUES ($1, 'giver') RETURNING id`, uuid.NewString()+"@giver.test"))
	require.NoError(t, conn.GetContext(ctx, &installerID,
		`INSERT INTO users (email, role, payout_beneficiary_id) VALUES ($1, 'installer', 'BENE_1') RETURNING id`, uuid.NewString()+"@installer.test"))

	require.NoError(t, conn.GetContext(ctx, &jobID, `
		INSERT INTO jobs (giver_id, installer_id, bid_amount, start_at, status)
		VALUES ($1, $2, 10000, NOW() + INTERVAL '2 days', $3)
		RETURNING id
	`, giverID, installerID, jobStatus))

	require.NoError(t, conn.GetContext(ctx, &txID, `
		INSERT INTO escrow_transactions (job_id, gateway_order_id, payer_id, payee_id, amount,
			commission, giver_fee, total_paid_by_giver, payout_to_installer, status)
		VALUES ($1, $2, $3, $4, 10000, 500, 250, 10250, 9500, $5)
		RETURNING id
	`, jobID, "ord_"+uuid.NewString(), giverID, installerID, txStatus))
	return jobID, txID
}

func cancellationCommit(jobID, txID uuid.UUID) models.SettlementCommit {
	reason := models.CancellationReasonGiver
	now := time.Now().UTC()
	return models.SettlementCommit{
		TransactionID: txID,
		From:          valueobject.TransactionStatusFunded,
		To:            valueobject.TransactionStatusRefunded,
		Job: models.JobTransition{
			JobID:  jobID,
			From:   valueobject.JobStatusFunded,
			To:     valueobject.JobStatusCancelled,
			Reason: &reason,
		},
		Settlement: models.Settlement{
			Path:      models.SettlementPathCancellation,
			Split:     models.Split{RefundAmount: 10250},
			Refund:    models.RailOutcome{Rail: models.RailRefund, Amount: 10250, Status: models.RailStatusPending},
			Payout:    models.RailOutcome{Rail: models.RailPayout, Status: models.RailStatusSkipped},
			Epoch:     1,
			SettledAt: now,
		},
	}
}

func TestTransactionRepository_Settle_SecondClaimIsStale(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTransactionRepository(conn)
	ctx := context.Background()
	jobID, txID := seedEscrow(t, conn, valueobject.JobStatusFunded, valueobject.TransactionStatusFunded)

	first, err := repo.Settle(ctx, cancellationCommit(jobID, txID))
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionStatusRefunded, first.Status)
	assert.Equal(t, 1, first.SettlementVersion)
	require.NotNil(t, first.Settlement)
	assert.Equal(t, models.RailStatusPending, first.Settlement.Refund.Status)

	_, err = repo.Settle(ctx, cancellationCommit(jobID, txID))
	assert.ErrorIs(t, err, ErrStaleState)

	var jobStatus string
	require.NoError(t, conn.GetContext(ctx, &jobStatus, `SELECT status FROM jobs WHERE id = $1`, jobID))
	assert.Equal(t, string(valueobject.JobStatusCancelled), jobStatus)

	stored, err := repo.GetByID(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SettlementVersion)
}

func TestTransactionRepository_Settle_ConcurrentClaimsSettleOnce(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTransactionRepository(conn)
	jobID, txID := seedEscrow(t, conn, valueobject.JobStatusFunded, valueobject.TransactionStatusFunded)

	const racers = 5
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stale int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Settle(context.Background(), cancellationCommit(jobID, txID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, ErrStaleState):
				stale++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, stale)
}

func TestTransactionRepository_Settle_MissingTransaction(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTransactionRepository(conn)

	_, err := repo.Settle(context.Background(), cancellationCommit(uuid.New(), uuid.New()))
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_Transition_CompareAndSet(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTransactionRepository(conn)
	ctx := context.Background()
	jobID, txID := seedEscrow(t, conn, valueobject.JobStatusAwarded, valueobject.TransactionStatusInitiated)

	fundedAt := time.Now().UTC()
	patch := models.TransactionPatch{
		FundedAt: &fundedAt,
		Job:      &models.JobTransition{JobID: jobID, From: valueobject.JobStatusAwarded, To: valueobject.JobStatusFunded},
	}

	funded, err := repo.Transition(ctx, txID, valueobject.TransactionStatusInitiated, valueobject.TransactionStatusFunded, patch)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TransactionStatusFunded, funded.Status)
	assert.NotNil(t, funded.FundedAt)

	_, err = repo.Transition(ctx, txID, valueobject.TransactionStatusInitiated, valueobject.TransactionStatusFunded, patch)
	assert.ErrorIs(t, err, ErrStaleState)

	_, err = repo.Transition(ctx, txID, valueobject.TransactionStatusFunded, valueobject.TransactionStatusInitiated, models.TransactionPatch{})
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransactionRepository_RecordRails_VersionCheck(t *testing.T) {
	conn := newTestDB(t)
	repo := NewTransactionRepository(conn)
	ctx := context.Background()
	jobID, txID := seedEscrow(t, conn, valueobject.JobStatusFunded, valueobject.TransactionStatusFunded)

	commit := cancellationCommit(jobID, txID)
	claimed, err := repo.Settle(ctx, commit)
	require.NoError(t, err)

	record := commit.Settlement
	record.Refund.Status = models.RailStatusSucceeded
	record.Refund.GatewayRef = "cf_1"

	next, err := repo.RecordRails(ctx, txID, claimed.SettlementVersion, record)
	require.NoError(t, err)
	assert.Equal(t, claimed.SettlementVersion+1, next)

	_, err = repo.RecordRails(ctx, txID, claimed.SettlementVersion, record)
	assert.ErrorIs(t, err, ErrStaleState)

	pending, err := repo.ListNeedingReconciliation(ctx, 100, 0)
	require.NoError(t, err)
	for _, tx := range pending {
		assert.NotEqual(t, txID, tx.ID)
	}
}
