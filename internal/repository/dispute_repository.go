package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository/common"
)

const disputeColumns = `id, job_id, transaction_id, raised_by, reason, status, resolution,
	split_percentage, resolved_by, created_at, resolved_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", disputeColumns, id, ErrDisputeNotFound)
}

// GetOpenByJob - открытый спор заказа (не более одного).
func (r *DisputeRepository) GetOpenByJob(ctx context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE job_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &d, query, jobID, models.DisputeStatusOpen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get open by job %w", err)
	}
	return &d, nil
}

// ListByUser - споры по заказам, где пользователь заказчик или исполнитель.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.id, d.job_id, d.transaction_id, d.raised_by, d.reason, d.status, d.resolution,
			d.split_percentage, d.resolved_by, d.created_at, d.resolved_at
		FROM disputes d
		JOIN jobs j ON d.job_id = j.id
		WHERE j.giver_id = $1 OR j.installer_id = $1
		ORDER BY d.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by user %w", err)
	}
	return disputes, nil
}

// ListOpen - очередь споров для администратора.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &disputes, query, models.DisputeStatusOpen, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list open %w", err)
	}
	return disputes, nil
}

// insertDispute создаёт спор внутри транзакции перевода в disputed.
func insertDispute(ctx context.Context, q sqlx.QueryerContext, d *models.Dispute) error {
	if d.Status == "" {
		d.Status = models.DisputeStatusOpen
	}
	err := q.QueryRowxContext(ctx, `
		INSERT INTO disputes (job_id, transaction_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, d.JobID, d.TransactionID, d.RaisedBy, d.Reason, d.Status).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	return nil
}
