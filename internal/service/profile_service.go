package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/validation"
)

// PayoutProfileStore - реквизиты выплат пользователя.
type PayoutProfileStore interface {
	UserStore
	SetBeneficiary(ctx context.Context, id uuid.UUID, beneficiaryID string) error
}

// ProfileService управляет реквизитами выплат исполнителя.
type ProfileService struct {
	users PayoutProfileStore
}

func NewProfileService(users PayoutProfileStore) *ProfileService {
	return &ProfileService{users: users}
}

// PayoutProfile возвращает реквизиты и долг текущего пользователя.
func (s *ProfileService) PayoutProfile(ctx context.Context, actor Actor) (*models.PayoutProfile, error) {
	profile, err := s.users.GetPayoutProfile(ctx, actor.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return profile, nil
}

// SetBeneficiary привязывает получателя выплат. Только для исполнителей.
func (s *ProfileService) SetBeneficiary(ctx context.Context, actor Actor, beneficiaryID string) (*models.PayoutProfile, error) {
	if actor.Role != models.RoleInstaller {
		return nil, apperror.ErrForbidden
	}

	beneficiaryID, err := validation.BeneficiaryID(beneficiaryID)
	if err != nil {
		return nil, apperror.Detail(apperror.ErrValidation, "%s", err.Error())
	}

	if err := s.users.SetBeneficiary(ctx, actor.UserID, beneficiaryID); err != nil {
		return nil, storeError(err)
	}

	logger.WithFields(logrus.Fields{
		"user_id":        actor.UserID,
		"beneficiary_id": beneficiaryID,
	}).Info("payout beneficiary updated")

	return s.PayoutProfile(ctx, actor)
}
