package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// Суммы хранятся в целых рупиях (int64), проценты - в decimal.
const Currency = "INR"

var hundred = decimal.NewFromInt(100)

// Percent - процентная ставка в диапазоне [0, 100].
type Percent struct {
	value decimal.Decimal
}

func NewPercent(v decimal.Decimal) (Percent, error) {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return Percent{}, apperror.New(apperror.ErrCodeValidation, "процент должен быть в диапазоне от 0 до 100")
	}
	return Percent{value: v}, nil
}

// MustPercent для констант и тестов.
func MustPercent(v string) Percent {
	p, err := NewPercent(decimal.RequireFromString(v))
	if err != nil {
		panic(err)
	}
	return p
}

func (p Percent) Decimal() decimal.Decimal {
	return p.value
}

// share возвращает amount * p / 100 без округления.
func (p Percent) share(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(p.value).Div(hundred)
}

// CeilOf - доля суммы, округлённая вверх.
func (p Percent) CeilOf(amount int64) int64 {
	return p.share(amount).Ceil().IntPart()
}

// FloorOf - доля суммы, округлённая вниз.
func (p Percent) FloorOf(amount int64) int64 {
	return p.share(amount).Floor().IntPart()
}

func (p Percent) String() string {
	return p.value.String() + "%"
}

// FormatAmount форматирует сумму для API шлюза ("1250.00").
func FormatAmount(amount int64) string {
	return fmt.Sprintf("%d.00", amount)
}
