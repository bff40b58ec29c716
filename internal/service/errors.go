package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository"
)

// Actor - аутентифицированный инициатор операции.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// storeError переводит ошибки хранилища в AppError для HTTP слоя.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, repository.ErrTransactionNotFound):
		return apperror.ErrTransactionNotFound
	case errors.Is(err, repository.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.ErrUserNotFound
	case errors.Is(err, repository.ErrAlertNotFound):
		return apperror.ErrAlertNotFound
	case errors.Is(err, repository.ErrNotificationNotFound):
		return apperror.ErrNotificationNotFound
	case errors.Is(err, repository.ErrStaleState):
		return apperror.ErrStaleState
	case errors.Is(err, repository.ErrDuplicateActiveTransaction):
		return apperror.ErrDuplicateActiveTransaction
	case errors.Is(err, repository.ErrDisputeAlreadyOpen):
		return apperror.ErrDisputeAlreadyOpen
	case errors.Is(err, repository.ErrIllegalTransition):
		return apperror.ErrIllegalJobTransition
	}
	return err
}
