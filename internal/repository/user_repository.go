package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository/common"
)

// UserRepository отвечает за участников сделок и их платёжные реквизиты.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", "id, email, name, role", id, ErrUserNotFound)
}

// GetPayoutProfile возвращает реквизиты выплат и долг пользователя.
func (r *UserRepository) GetPayoutProfile(ctx context.Context, id uuid.UUID) (*models.PayoutProfile, error) {
	return common.GetByID[models.PayoutProfile](ctx, r.db, "users", "id, payout_beneficiary_id, platform_debt, updated_at", id, ErrUserNotFound)
}

// SetBeneficiary привязывает получателя Cashfree Payouts к исполнителю.
func (r *UserRepository) SetBeneficiary(ctx context.Context, id uuid.UUID, beneficiaryID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET payout_beneficiary_id = $2, updated_at = NOW() WHERE id = $1`, id, beneficiaryID)
	if err != nil {
		return fmt.Errorf("user repository: set beneficiary %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
