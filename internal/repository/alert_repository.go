package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

const alertColumns = `id, level, kind, message, metadata, read, created_at`

// AlertRepository хранит сигналы для операторов.
type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	metadata := string(alert.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO operator_alerts (level, kind, message, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, alert.Level, alert.Kind, alert.Message, metadata).Scan(&alert.ID, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("alert repository: create %w", err)
	}
	return nil
}

// List возвращает алерты, новые сверху.
func (r *AlertRepository) List(ctx context.Context, limit, offset int, unreadOnly bool) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM operator_alerts`
	if unreadOnly {
		query += ` WHERE read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	alerts := []models.Alert{}
	if err := r.db.SelectContext(ctx, &alerts, query, limit, offset); err != nil {
		return nil, fmt.Errorf("alert repository: list %w", err)
	}
	return alerts, nil
}

func (r *AlertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE operator_alerts SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("alert repository: mark read %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlertNotFound
	}
	return nil
}
