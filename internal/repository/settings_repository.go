package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
)

// SettingsRepository читает ставки платформы из единственной строки platform_settings.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Current возвращает актуальные ставки. Если строка не создана, действуют значения по умолчанию.
func (r *SettingsRepository) Current(ctx context.Context) (models.RatesSnapshot, error) {
	var rates models.RatesSnapshot
	err := r.db.GetContext(ctx, &rates, `
		SELECT cancellation_fee_percent, installer_commission_rate, giver_fee_rate, updated_at
		FROM platform_settings WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultRates(), nil
	}
	if err != nil {
		return models.RatesSnapshot{}, fmt.Errorf("settings repository: current %w", err)
	}
	return rates, nil
}

// Update сохраняет ставки. Уже закрытые сделки хранят свой снимок и не меняются.
func (r *SettingsRepository) Update(ctx context.Context, rates *models.RatesSnapshot) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO platform_settings (id, cancellation_fee_percent, installer_commission_rate, giver_fee_rate, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			cancellation_fee_percent = EXCLUDED.cancellation_fee_percent,
			installer_commission_rate = EXCLUDED.installer_commission_rate,
			giver_fee_rate = EXCLUDED.giver_fee_rate,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`, rates.CancellationFeePercent, rates.InstallerCommissionRate, rates.GiverFeeRate).Scan(&rates.TakenAt)
	if err != nil {
		return fmt.Errorf("settings repository: update %w", err)
	}
	return nil
}
