// Package settlement считает комиссии, штрафы и раздел средств escrow.
// Только чистые функции: без I/O, время и ставки передаются явно.
package settlement

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

const (
	// GraceWindow - сколько после фондирования действует льготная отмена.
	GraceWindow = 30 * time.Minute
	// GraceMinLead - минимальный запас до начала работ для льготной отмены.
	GraceMinLead = 2 * time.Hour
	// NoShowWait - сколько ждать после начала, прежде чем заявлять о неявке.
	NoShowWait = time.Hour

	tierFarLead  = 24 * time.Hour
	tierMidLead  = 12 * time.Hour
	tierNearLead = 4 * time.Hour
)

var (
	tierMidPenalty  = valueobject.MustPercent("10")
	tierNearPenalty = valueobject.MustPercent("25")
	tierLastPenalty = valueobject.MustPercent("50")
)

// PlatformFee - минимальная сумма, которую платформа удерживает при любой отмене.
func PlatformFee(amount int64, rates models.RatesSnapshot) (int64, error) {
	p, err := valueobject.NewPercent(rates.CancellationFeePercent)
	if err != nil {
		return 0, err
	}
	return p.CeilOf(amount), nil
}

// ComputeCancellationSplit делит escrow при отмене заказчиком или заявке о неявке.
// Порядок правил: неявка, льготный период, временная шкала.
func ComputeCancellationSplit(tx *models.Transaction, job *models.Job, now time.Time, reason models.CancellationReason, rates models.RatesSnapshot) (models.Split, error) {
	fee, err := PlatformFee(tx.Amount, rates)
	if err != nil {
		return models.Split{}, err
	}

	if reason == models.CancellationReasonNoShow {
		return noShowSplit(tx, job, now, fee)
	}

	if inGracePeriod(tx, job, now) {
		return penaltySplit(tx, fee, fee, models.RuleGracePeriod), nil
	}

	// Без расписания считаем старт далёким.
	if job.StartAt == nil {
		return penaltySplit(tx, fee, fee, models.RuleUnscheduled), nil
	}

	lead := job.StartAt.Sub(now)
	switch {
	case lead <= 0:
		return models.Split{}, apperror.ErrPastStartTime
	case lead > tierFarLead:
		return penaltySplit(tx, fee, fee, models.RuleTierOver24h), nil
	case lead >= tierMidLead:
		return penaltySplit(tx, tierMidPenalty.CeilOf(tx.Amount), fee, models.RuleTier12To24h), nil
	case lead >= tierNearLead:
		return penaltySplit(tx, tierNearPenalty.CeilOf(tx.Amount), fee, models.RuleTier4To12h), nil
	default:
		return penaltySplit(tx, tierLastPenalty.CeilOf(tx.Amount), fee, models.RuleTierUnder4h), nil
	}
}

func inGracePeriod(tx *models.Transaction, job *models.Job, now time.Time) bool {
	if tx.FundedAt == nil || job.StartAt == nil {
		return false
	}
	return now.Sub(*tx.FundedAt) <= GraceWindow && job.StartAt.Sub(now) >= GraceMinLead
}

// penaltySplit: комиссия платформы удерживается первой, остаток штрафа уходит исполнителю.
func penaltySplit(tx *models.Transaction, penalty, fee int64, rule string) models.Split {
	compensation := max(0, penalty-fee)
	penalty = max(penalty, fee)

	return models.Split{
		RefundAmount:          tx.TotalPaidByGiver - penalty,
		PayoutAmount:          compensation,
		PlatformFee:           fee,
		InstallerCompensation: compensation,
		PlatformRetained:      penalty - compensation,
		Rule:                  rule,
	}
}

func noShowSplit(tx *models.Transaction, job *models.Job, now time.Time, fee int64) (models.Split, error) {
	if job.StartAt == nil || job.WorkStarted() || now.Sub(*job.StartAt) < NoShowWait {
		return models.Split{}, apperror.ErrNoShowNotEligible
	}

	return models.Split{
		RefundAmount:  tx.TotalPaidByGiver,
		PlatformFee:   fee,
		InstallerDebt: fee,
		Rule:          models.RuleNoShow,
	}, nil
}

// ComputeDisputeSplit делит основную сумму escrow по решению админа.
// Шкала штрафов не применяется; сборы сверх суммы остаются у платформы.
func ComputeDisputeSplit(tx *models.Transaction, resolution models.DisputeResolutionType, splitPercentage *float64) (models.Split, error) {
	var split models.Split

	switch resolution {
	case models.DisputeResolutionRefund:
		split = models.Split{RefundAmount: tx.Amount, Rule: models.RuleDisputeRefund}
	case models.DisputeResolutionRelease:
		split = models.Split{PayoutAmount: tx.Amount, Rule: models.RuleDisputeRelease}
	case models.DisputeResolutionSplit:
		if splitPercentage == nil || math.IsNaN(*splitPercentage) || math.IsInf(*splitPercentage, 0) {
			return models.Split{}, apperror.ErrInvalidSplit
		}
		pct, err := valueobject.NewPercent(decimal.NewFromFloat(*splitPercentage))
		if err != nil {
			return models.Split{}, apperror.Detail(apperror.ErrInvalidSplit, "получено %v", *splitPercentage)
		}
		payout := pct.FloorOf(tx.Amount)
		split = models.Split{
			RefundAmount: tx.Amount - payout,
			PayoutAmount: payout,
			Rule:         models.RuleDisputeSplit,
		}
	default:
		return models.Split{}, apperror.ErrInvalidResolution
	}

	split.PlatformRetained = tx.TotalPaidByGiver - split.RefundAmount - split.PayoutAmount
	return split, nil
}

// ComputeReleaseSplit - обычное завершение: исполнитель получает свою сумму.
func ComputeReleaseSplit(tx *models.Transaction) models.Split {
	return models.Split{
		PayoutAmount:     tx.PayoutToInstaller,
		PlatformRetained: tx.TotalPaidByGiver - tx.PayoutToInstaller,
		Rule:             models.RuleRelease,
	}
}

// CheckConservation проверяет, что раздел покрывает ровно сумму, оплаченную заказчиком.
func CheckConservation(tx *models.Transaction, split models.Split) error {
	if split.RefundAmount < 0 || split.PayoutAmount < 0 || split.PlatformRetained < 0 ||
		split.PlatformFee < 0 || split.InstallerCompensation < 0 || split.InstallerDebt < 0 {
		return fmt.Errorf("settlement: negative component in split %+v", split)
	}
	if sum := split.RefundAmount + split.PayoutAmount + split.PlatformRetained; sum != tx.TotalPaidByGiver {
		return fmt.Errorf("settlement: split sums to %d, paid by giver %d", sum, tx.TotalPaidByGiver)
	}
	return nil
}
