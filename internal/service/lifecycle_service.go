package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/settlement"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/gateway"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/validation"
)

// FundingSession - всё, что нужно клиенту для оплаты заказа.
type FundingSession struct {
	Transaction      *models.Transaction `json:"transaction"`
	PaymentSessionID string              `json:"payment_session_id"`
}

// JobLifecycleService - единственный источник допустимых переходов заказа вне денежных расчётов.
type JobLifecycleService struct {
	jobs     JobStore
	txs      TransactionStore
	settings SettingsStore
	users    UserStore
	gateway  gateway.Gateway
	alerts   Alerter
	notifier EventNotifier
	now      func() time.Time
}

func NewJobLifecycleService(jobs JobStore, txs TransactionStore, settings SettingsStore, users UserStore, gw gateway.Gateway, alerts Alerter, notifier EventNotifier) *JobLifecycleService {
	return &JobLifecycleService{
		jobs:     jobs,
		txs:      txs,
		settings: settings,
		users:    users,
		gateway:  gw,
		alerts:   alerts,
		notifier: notifier,
		now:      time.Now,
	}
}

// Plan проверяет переход заказа по таблице статусов.
func (s *JobLifecycleService) Plan(job *models.Job, to valueobject.JobStatus) (models.JobTransition, error) {
	if !job.Status.CanTransitionTo(to) {
		return models.JobTransition{}, apperror.Detail(apperror.ErrIllegalJobTransition, "%s -> %s", job.Status, to)
	}
	return models.JobTransition{JobID: job.ID, From: job.Status, To: to}, nil
}

// Award назначает исполнителя. installer приходит как ссылка или развёрнутый объект.
func (s *JobLifecycleService) Award(ctx context.Context, actor Actor, jobID uuid.UUID, installer models.PartyRef, bidAmount, tip int64, startAt *time.Time) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if installer.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "исполнитель не указан")
	}
	if bidAmount <= 0 || tip < 0 {
		return nil, apperror.ErrInvalidAmount
	}

	installerID := installer.UserID()
	if installerID == job.GiverID {
		return nil, apperror.New(apperror.ErrCodeValidation, "заказчик не может быть исполнителем")
	}
	user, err := s.users.GetByID(ctx, installerID)
	if err != nil {
		return nil, storeError(err)
	}
	if user.Role != models.RoleInstaller {
		return nil, apperror.New(apperror.ErrCodeValidation, "пользователь не является исполнителем")
	}

	if _, err := s.Plan(job, valueobject.JobStatusAwarded); err != nil {
		return nil, err
	}
	awarded, err := s.jobs.Award(ctx, jobID, installerID, bidAmount, tip, startAt)
	if err != nil {
		return nil, storeError(err)
	}
	return awarded, nil
}

// InitiateFunding считает суммы по свежим ставкам, создаёт заказ у провайдера и транзакцию initiated.
func (s *JobLifecycleService) InitiateFunding(ctx context.Context, actor Actor, jobID uuid.UUID) (*FundingSession, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) {
		return nil, apperror.ErrForbidden
	}
	if _, err := s.Plan(job, valueobject.JobStatusFunded); err != nil {
		return nil, err
	}
	if job.InstallerID == nil {
		return nil, apperror.Detail(apperror.ErrIllegalJobTransition, "исполнитель не назначен")
	}

	rates, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	funding, err := settlement.ComputeFunding(job.BidAmount, job.Tip, rates)
	if err != nil {
		return nil, err
	}

	giver, err := s.users.GetByID(ctx, job.GiverID)
	if err != nil {
		return nil, storeError(err)
	}

	orderID := "ord_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		OrderID:       orderID,
		Amount:        funding.TotalPaidByGiver,
		CustomerID:    giver.ID.String(),
		CustomerEmail: giver.Email,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось создать платёж")
	}

	tx := &models.Transaction{
		JobID:          job.ID,
		GatewayOrderID: &order.OrderID,
		PayerID:        job.GiverID,
		PayeeID:        *job.InstallerID,
	}
	funding.Apply(tx)
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, storeError(err)
	}

	logger.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"transaction_id": tx.ID,
		"order_id":       order.OrderID,
		"total":          tx.TotalPaidByGiver,
	}).Info("escrow: funding initiated")

	return &FundingSession{Transaction: tx, PaymentSessionID: order.PaymentSessionID}, nil
}

// ConfirmFunding фиксирует поступление денег: транзакция и заказ переходят в funded вместе.
func (s *JobLifecycleService) ConfirmFunding(ctx context.Context, actor Actor, jobID uuid.UUID, gatewayOrderID string) (*models.Transaction, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	tx, err := s.txs.FindActiveByJob(ctx, jobID, valueobject.TransactionStatusInitiated)
	if err != nil {
		return nil, storeError(err)
	}
	if gatewayOrderID != "" && (tx.GatewayOrderID == nil || *tx.GatewayOrderID != gatewayOrderID) {
		return nil, apperror.Detail(apperror.ErrTransactionNotFound, "заказ провайдера %s", gatewayOrderID)
	}

	transition, err := s.Plan(job, valueobject.JobStatusFunded)
	if err != nil {
		return nil, err
	}
	if err := s.verifyPayment(ctx, tx); err != nil {
		return nil, err
	}

	fundedAt := s.now()
	funded, err := s.txs.Transition(ctx, tx.ID, valueobject.TransactionStatusInitiated, valueobject.TransactionStatusFunded, models.TransactionPatch{
		FundedAt: &fundedAt,
		Job:      &transition,
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.notify(ctx, models.SettlementEvent{
		Event:         models.EventEscrowFunded,
		JobID:         job.ID,
		TransactionID: funded.ID,
		GiverID:       job.GiverID,
		InstallerID:   job.InstallerID,
		OccurredAt:    fundedAt,
	})
	return funded, nil
}

// verifyPayment сверяет заказ у провайдера: PAID и ровно TotalPaidByGiver.
// Слово клиента об оплате не принимается.
func (s *JobLifecycleService) verifyPayment(ctx context.Context, tx *models.Transaction) error {
	if tx.GatewayOrderID == nil {
		return apperror.Detail(apperror.ErrPaymentNotConfirmed, "у транзакции нет заказа провайдера")
	}

	order, err := s.gateway.GetOrder(ctx, *tx.GatewayOrderID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось получить статус платежа")
	}

	paid, ok := order.PaidAmount()
	if !ok || paid != tx.TotalPaidByGiver {
		logger.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"order_id":       *tx.GatewayOrderID,
			"order_status":   order.Status,
			"order_amount":   order.Amount.String(),
			"expected":       tx.TotalPaidByGiver,
		}).Warn("escrow: funding confirmation rejected")
		return apperror.Detail(apperror.ErrPaymentNotConfirmed, "статус %s, сумма %s", order.Status, order.Amount.String())
	}
	return nil
}

// StartWork отмечает фактическое начало работ исполнителем. После этого неявка невозможна.
func (s *JobLifecycleService) StartWork(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsInstaller(actor.UserID) {
		return nil, apperror.ErrForbidden
	}
	if job.Status != valueobject.JobStatusFunded {
		return nil, apperror.Detail(apperror.ErrIllegalJobTransition, "работы можно начать только по оплаченному заказу")
	}
	if job.WorkStarted() {
		return job, nil
	}

	if err := s.jobs.MarkWorkStarted(ctx, jobID, s.now()); err != nil {
		return nil, storeError(err)
	}
	return s.loadJob(ctx, jobID)
}

// SubmitWork передаёт результат заказчику: funded -> pending_confirmation.
func (s *JobLifecycleService) SubmitWork(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsInstaller(actor.UserID) {
		return nil, apperror.ErrForbidden
	}

	transition, err := s.Plan(job, valueobject.JobStatusPendingConfirmation)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.UpdateStatus(ctx, transition); err != nil {
		return nil, storeError(err)
	}
	job.Status = transition.To
	return job, nil
}

// CancelUnfunded закрывает назначенный, но не оплаченный заказ. Денег в escrow нет.
func (s *JobLifecycleService) CancelUnfunded(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if job.Status != valueobject.JobStatusAwarded {
		return nil, apperror.Detail(apperror.ErrIllegalJobTransition, "после оплаты используйте отмену с расчётом")
	}

	transition, err := s.Plan(job, valueobject.JobStatusCancelled)
	if err != nil {
		return nil, err
	}
	reason := models.CancellationReasonUnfunded
	transition.Reason = &reason
	if err := s.jobs.UpdateStatus(ctx, transition); err != nil {
		return nil, storeError(err)
	}

	job.Status = transition.To
	job.CancellationReason = &reason
	return job, nil
}

// RaiseDispute замораживает escrow: транзакция и заказ переходят в disputed, создаётся спор.
// С этого момента деньги двигает только решение администратора.
func (s *JobLifecycleService) RaiseDispute(ctx context.Context, actor Actor, jobID uuid.UUID, reason string) (*models.Dispute, error) {
	reason, err := validation.DisputeReason(reason)
	if err != nil {
		return nil, apperror.Detail(apperror.ErrValidation, "%s", err.Error())
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsParticipant(actor.UserID) {
		return nil, apperror.ErrForbidden
	}

	transition, err := s.Plan(job, valueobject.JobStatusDisputed)
	if err != nil {
		return nil, err
	}

	tx, err := s.txs.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	if tx.Status != valueobject.TransactionStatusFunded {
		return nil, apperror.ErrDisputeAlreadyOpen
	}

	dispute := &models.Dispute{
		JobID:    job.ID,
		RaisedBy: actor.UserID,
		Reason:   reason,
		Status:   models.DisputeStatusOpen,
	}
	if _, err := s.txs.Transition(ctx, tx.ID, valueobject.TransactionStatusFunded, valueobject.TransactionStatusDisputed, models.TransactionPatch{
		Job:         &transition,
		OpenDispute: dispute,
	}); err != nil {
		return nil, storeError(err)
	}

	s.alerts.Raise(ctx, models.AlertLevelCritical, models.AlertKindDisputeRaised, "открыт спор по заказу", map[string]any{
		"job_id":         job.ID.String(),
		"transaction_id": tx.ID.String(),
		"dispute_id":     dispute.ID.String(),
		"raised_by":      actor.UserID.String(),
	})
	s.notify(ctx, models.SettlementEvent{
		Event:         models.EventDisputeRaised,
		JobID:         job.ID,
		TransactionID: tx.ID,
		GiverID:       job.GiverID,
		InstallerID:   job.InstallerID,
		OccurredAt:    s.now(),
	})
	return dispute, nil
}

func (s *JobLifecycleService) loadJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *JobLifecycleService) notify(ctx context.Context, event models.SettlementEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.WithFields(logrus.Fields{"job_id": event.JobID, "event": event.Event, "error": err.Error()}).Warn("escrow: notification not queued")
	}
}
