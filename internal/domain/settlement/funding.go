package settlement

import (
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// Funding - суммы, фиксируемые при создании транзакции.
type Funding struct {
	Amount            int64
	Tip               int64
	GiverFee          int64
	Commission        int64
	TotalPaidByGiver  int64
	PayoutToInstaller int64
}

// ComputeFunding считает сбор заказчика сверху и комиссию исполнителя из ставки.
// Чаевые целиком уходят исполнителю.
func ComputeFunding(amount, tip int64, rates models.RatesSnapshot) (Funding, error) {
	if amount <= 0 || tip < 0 {
		return Funding{}, apperror.ErrInvalidAmount
	}

	giverRate, err := valueobject.NewPercent(rates.GiverFeeRate)
	if err != nil {
		return Funding{}, err
	}
	commissionRate, err := valueobject.NewPercent(rates.InstallerCommissionRate)
	if err != nil {
		return Funding{}, err
	}

	giverFee := giverRate.CeilOf(amount)
	commission := commissionRate.CeilOf(amount)

	return Funding{
		Amount:            amount,
		Tip:               tip,
		GiverFee:          giverFee,
		Commission:        commission,
		TotalPaidByGiver:  amount + giverFee + tip,
		PayoutToInstaller: amount - commission + tip,
	}, nil
}

// Apply переносит суммы в транзакцию.
func (f Funding) Apply(tx *models.Transaction) {
	tx.Amount = f.Amount
	tx.Tip = f.Tip
	tx.GiverFee = f.GiverFee
	tx.Commission = f.Commission
	tx.TotalPaidByGiver = f.TotalPaidByGiver
	tx.PayoutToInstaller = f.PayoutToInstaller
}
