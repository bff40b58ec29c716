package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

func TestComputeFunding(t *testing.T) {
	f, err := ComputeFunding(10000, 0, models.DefaultRates())
	require.NoError(t, err)

	assert.Equal(t, int64(250), f.GiverFee)
	assert.Equal(t, int64(500), f.Commission)
	assert.Equal(t, int64(10250), f.TotalPaidByGiver)
	assert.Equal(t, int64(9500), f.PayoutToInstaller)
}

func TestComputeFunding_TipGoesToInstaller(t *testing.T) {
	f, err := ComputeFunding(999, 100, models.DefaultRates())
	require.NoError(t, err)

	assert.Equal(t, int64(25), f.GiverFee)
	assert.Equal(t, int64(50), f.Commission)
	assert.Equal(t, int64(1124), f.TotalPaidByGiver)
	assert.Equal(t, int64(1049), f.PayoutToInstaller)

	tx := &models.Transaction{}
	f.Apply(tx)
	assert.Equal(t, f.TotalPaidByGiver, tx.TotalPaidByGiver)
	assert.Equal(t, int64(100), tx.Tip)
}

func TestComputeFunding_Invalid(t *testing.T) {
	_, err := ComputeFunding(0, 0, models.DefaultRates())
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	_, err = ComputeFunding(100, -1, models.DefaultRates())
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	rates := models.DefaultRates()
	rates.InstallerCommissionRate = decimal.NewFromInt(-5)
	_, err = ComputeFunding(100, 0, rates)
	assert.True(t, apperror.IsValidation(err))
}
