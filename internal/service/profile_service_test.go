package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

func TestProfileService_SetBeneficiary(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(memUserStore{f.db})

	profile, err := svc.SetBeneficiary(context.Background(), f.installer, "  BENE_NEW_01 ")
	require.NoError(t, err)
	require.NotNil(t, profile.BeneficiaryID)
	assert.Equal(t, "BENE_NEW_01", *profile.BeneficiaryID)
	assert.True(t, profile.HasBeneficiary())
}

func TestProfileService_SetBeneficiary_Rejected(t *testing.T) {
	f := newFixture(t)
	svc := NewProfileService(memUserStore{f.db})
	ctx := context.Background()

	_, err := svc.SetBeneficiary(ctx, f.giver, "BENE_GIVER")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.SetBeneficiary(ctx, f.installer, "bene with spaces")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.SetBeneficiary(ctx, Actor{UserID: uuid.New(), Role: models.RoleInstaller}, "BENE_X")
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
}

func TestProfileService_PayoutProfile_ShowsDebt(t *testing.T) {
	f := newFixture(t)
	f.db.profiles[f.installer.UserID].PlatformDebt = 250
	svc := NewProfileService(memUserStore{f.db})

	profile, err := svc.PayoutProfile(context.Background(), f.installer)
	require.NoError(t, err)
	assert.Equal(t, int64(250), profile.PlatformDebt)
	assert.Equal(t, "BENE_INSTALLER", *profile.BeneficiaryID)
}
