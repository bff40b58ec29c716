package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// SettingsService управляет ставками платформы. Уже созданные транзакции
// хранят свои суммы, новые ставки их не меняют.
type SettingsService struct {
	settings SettingsStore
}

func NewSettingsService(settings SettingsStore) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) Current(ctx context.Context) (models.RatesSnapshot, error) {
	return s.settings.Current(ctx)
}

// Update сохраняет новые ставки. Каждая ставка - процент от 0 до 100.
func (s *SettingsService) Update(ctx context.Context, actor Actor, rates models.RatesSnapshot) (models.RatesSnapshot, error) {
	if !actor.IsAdmin() {
		return models.RatesSnapshot{}, apperror.ErrForbidden
	}

	for _, rate := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"cancellation_fee_percent", rates.CancellationFeePercent},
		{"installer_commission_rate", rates.InstallerCommissionRate},
		{"giver_fee_rate", rates.GiverFeeRate},
	} {
		if _, err := valueobject.NewPercent(rate.value); err != nil {
			return models.RatesSnapshot{}, apperror.Detail(apperror.ErrInvalidRate, "%s = %s", rate.name, rate.value.String())
		}
	}

	if err := s.settings.Update(ctx, &rates); err != nil {
		return models.RatesSnapshot{}, err
	}

	logger.WithFields(logrus.Fields{
		"updated_by":                actor.UserID,
		"cancellation_fee_percent":  rates.CancellationFeePercent.String(),
		"installer_commission_rate": rates.InstallerCommissionRate.String(),
		"giver_fee_rate":            rates.GiverFeeRate.String(),
	}).Info("settings: platform rates updated")
	return rates, nil
}
