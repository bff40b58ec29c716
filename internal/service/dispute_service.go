package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// DisputeService - чтение споров. Открытие и решение идут через
// JobLifecycleService.RaiseDispute и ResolutionService.ResolveDispute.
type DisputeService struct {
	disputes DisputeStore
	jobs     JobStore
}

func NewDisputeService(disputes DisputeStore, jobs JobStore) *DisputeService {
	return &DisputeService{disputes: disputes, jobs: jobs}
}

// GetOpenDispute возвращает открытый спор по заказу участнику или админу.
func (s *DisputeService) GetOpenDispute(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Dispute, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	if !job.IsParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	d, err := s.disputes.GetOpenByJob(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	return d, nil
}

// ListUserDisputes - споры по заказам, где пользователь участник.
func (s *DisputeService) ListUserDisputes(ctx context.Context, actor Actor, limit, offset int) ([]models.Dispute, error) {
	limit, offset = clampPage(limit, offset)
	return s.disputes.ListByUser(ctx, actor.UserID, limit, offset)
}

// ListOpen - очередь споров для администратора.
func (s *DisputeService) ListOpen(ctx context.Context, actor Actor, limit, offset int) ([]models.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	limit, offset = clampPage(limit, offset)
	return s.disputes.ListOpen(ctx, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
