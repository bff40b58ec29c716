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

const jobColumns = `id, giver_id, installer_id, bid_amount, tip, start_at, work_started_at,
	status, cancellation_reason, created_at, updated_at`

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", jobColumns, id, ErrJobNotFound)
}

// UpdateStatus - CAS статуса заказа вне денежных операций.
func (r *JobRepository) UpdateStatus(ctx context.Context, t models.JobTransition) error {
	if err := transitionJob(ctx, r.db, t); err != nil {
		return r.staleOrMissing(ctx, t.JobID, err)
	}
	return nil
}

// Award назначает исполнителя и фиксирует ставку: open -> awarded.
func (r *JobRepository) Award(ctx context.Context, jobID, installerID uuid.UUID, bidAmount, tip int64, startAt *time.Time) (*models.Job, error) {
	var job models.Job
	query := `
		UPDATE jobs
		SET installer_id = $2, bid_amount = $3, tip = $4, start_at = COALESCE($5, start_at),
			status = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7
		RETURNING ` + jobColumns
	err := r.db.GetContext(ctx, &job, query, jobID, installerID, bidAmount, tip, startAt,
		valueobject.JobStatusAwarded, valueobject.JobStatusOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.staleOrMissing(ctx, jobID, ErrStaleState)
	}
	if err != nil {
		return nil, fmt.Errorf("job repository: award %w", err)
	}
	return &job, nil
}

// MarkWorkStarted отмечает фактическое начало работ. Повторная отметка не перезаписывает время.
func (r *JobRepository) MarkWorkStarted(ctx context.Context, jobID uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET work_started_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND work_started_at IS NULL
	`, jobID, at, valueobject.JobStatusFunded)
	if err != nil {
		return fmt.Errorf("job repository: mark work started %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.staleOrMissing(ctx, jobID, ErrStaleState)
	}
	return nil
}

func (r *JobRepository) staleOrMissing(ctx context.Context, id uuid.UUID, cause error) error {
	if !errors.Is(cause, ErrStaleState) {
		if errors.Is(cause, ErrIllegalTransition) {
			return cause
		}
		return fmt.Errorf("job repository: update status %w", cause)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("job repository: exists %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return ErrStaleState
}
