package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatesSnapshot - ставки платформы на момент конкретного расчёта.
// Перечитывается для каждой операции, чтобы учитывать изменения админа.
type RatesSnapshot struct {
	// CancellationFeePercent - комиссия платформы при отмене, % от суммы ставки.
	CancellationFeePercent  decimal.Decimal `db:"cancellation_fee_percent" json:"cancellation_fee_percent"`
	InstallerCommissionRate decimal.Decimal `db:"installer_commission_rate" json:"installer_commission_rate"`
	GiverFeeRate            decimal.Decimal `db:"giver_fee_rate" json:"giver_fee_rate"`
	TakenAt                 time.Time       `db:"updated_at" json:"taken_at"`
}

// DefaultRates - значения, если админ ещё не сохранял настройки.
func DefaultRates() RatesSnapshot {
	return RatesSnapshot{
		CancellationFeePercent:  decimal.RequireFromString("2.5"),
		InstallerCommissionRate: decimal.NewFromInt(5),
		GiverFeeRate:            decimal.RequireFromString("2.5"),
	}
}
