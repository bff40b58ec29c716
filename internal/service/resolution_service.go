package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/settlement"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/gateway"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
)

// settlementEpoch - у заказа ровно один расчёт, ключи идемпотентности строятся от эпохи 1.
const settlementEpoch = 1

// railsTimeout ограничивает рельсы, запись их исходов и алерты после захвата сделки.
const railsTimeout = 2 * time.Minute

// ResolutionDeps - зависимости оркестратора расчётов.
type ResolutionDeps struct {
	Transactions TransactionStore
	Jobs         JobStore
	Disputes     DisputeStore
	Settings     SettingsStore
	Users        UserStore
	Gateway      gateway.Gateway
	Lifecycle    *JobLifecycleService
	Alerts       Alerter
	Notifier     EventNotifier
	// HighValueRefund - возврат больше этой суммы порождает WARNING алерт. 0 отключает.
	HighValueRefund int64
}

// ResolutionService закрывает escrow: отмена, неявка, решение спора, обычное завершение.
// Порядок: расчёт и проверки без изменений, захват сделки через CAS, затем вызовы шлюза.
// Проигравший гонку запрос получает ErrStaleState и шлюз не вызывает.
type ResolutionService struct {
	txs             TransactionStore
	jobs            JobStore
	disputes        DisputeStore
	settings        SettingsStore
	users           UserStore
	gateway         gateway.Gateway
	lifecycle       *JobLifecycleService
	alerts          Alerter
	notifier        EventNotifier
	highValueRefund int64
	now             func() time.Time
}

func NewResolutionService(deps ResolutionDeps) *ResolutionService {
	return &ResolutionService{
		txs:             deps.Transactions,
		jobs:            deps.Jobs,
		disputes:        deps.Disputes,
		settings:        deps.Settings,
		users:           deps.Users,
		gateway:         deps.Gateway,
		lifecycle:       deps.Lifecycle,
		alerts:          deps.Alerts,
		notifier:        deps.Notifier,
		highValueRefund: deps.HighValueRefund,
		now:             time.Now,
	}
}

// settleRequest - полностью проверенный расчёт, готовый к захвату.
type settleRequest struct {
	actor       Actor
	job         *models.Job
	tx          *models.Transaction
	path        models.SettlementPath
	split       models.Split
	rates       *models.RatesSnapshot
	txTo        valueobject.TransactionStatus
	jobTo       models.JobTransition
	dispute     *models.DisputeResolution
	beneficiary string
}

// Cancel - отмена оплаченного заказа заказчиком по временной шкале штрафов.
func (s *ResolutionService) Cancel(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Transaction, error) {
	return s.cancellation(ctx, actor, jobID, models.CancellationReasonGiver)
}

// ClaimNoShow - заявка заказчика о неявке исполнителя: полный возврат, долг исполнителю.
func (s *ResolutionService) ClaimNoShow(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Transaction, error) {
	return s.cancellation(ctx, actor, jobID, models.CancellationReasonNoShow)
}

func (s *ResolutionService) cancellation(ctx context.Context, actor Actor, jobID uuid.UUID, reason models.CancellationReason) (*models.Transaction, error) {
	job, tx, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) {
		return nil, apperror.ErrForbidden
	}
	if tx.Status != valueobject.TransactionStatusFunded {
		return nil, apperror.Detail(apperror.ErrInvalidStateForResolution, "транзакция в статусе %s, решение принимает администратор", tx.Status)
	}

	transition, err := s.lifecycle.Plan(job, valueobject.JobStatusCancelled)
	if err != nil {
		return nil, err
	}
	transition.Reason = &reason

	rates, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	split, err := settlement.ComputeCancellationSplit(tx, job, s.now(), reason, rates)
	if err != nil {
		return nil, err
	}

	path := models.SettlementPathCancellation
	if reason == models.CancellationReasonNoShow {
		path = models.SettlementPathNoShow
	}
	return s.settle(ctx, settleRequest{
		actor: actor,
		job:   job,
		tx:    tx,
		path:  path,
		split: split,
		rates: &rates,
		txTo:  valueobject.TransactionStatusRefunded,
		jobTo: transition,
	})
}

// ResolveDispute - решение администратора по открытому спору.
// REFUND закрывает заказ как cancelled, RELEASE и SPLIT как completed.
func (s *ResolutionService) ResolveDispute(ctx context.Context, actor Actor, jobID uuid.UUID, resolution models.DisputeResolutionType, splitPercentage *float64) (*models.Transaction, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if !resolution.IsValid() {
		return nil, apperror.ErrInvalidResolution
	}

	job, tx, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if tx.Status != valueobject.TransactionStatusDisputed {
		return nil, apperror.Detail(apperror.ErrInvalidStateForResolution, "спор по транзакции не открыт")
	}

	jobTo := valueobject.JobStatusCompleted
	if resolution == models.DisputeResolutionRefund {
		jobTo = valueobject.JobStatusCancelled
	}
	transition, err := s.lifecycle.Plan(job, jobTo)
	if err != nil {
		return nil, err
	}

	dispute, err := s.disputes.GetOpenByJob(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}

	split, err := settlement.ComputeDisputeSplit(tx, resolution, splitPercentage)
	if err != nil {
		return nil, err
	}
	if resolution != models.DisputeResolutionSplit {
		splitPercentage = nil
	}

	return s.settle(ctx, settleRequest{
		actor: actor,
		job:   job,
		tx:    tx,
		path:  models.SettlementPathDispute,
		split: split,
		txTo:  valueobject.TransactionStatusResolved,
		jobTo: transition,
		dispute: &models.DisputeResolution{
			DisputeID:       dispute.ID,
			Resolution:      resolution,
			SplitPercentage: splitPercentage,
			ResolvedBy:      actor.UserID,
		},
	})
}

// Release - обычное завершение: заказчик (или автоматическое закрытие от имени админа)
// подтверждает работу, исполнитель получает свою сумму.
func (s *ResolutionService) Release(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Transaction, error) {
	job, tx, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsGiver(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if tx.Status != valueobject.TransactionStatusFunded {
		return nil, apperror.Detail(apperror.ErrInvalidStateForResolution, "транзакция в статусе %s", tx.Status)
	}

	transition, err := s.lifecycle.Plan(job, valueobject.JobStatusCompleted)
	if err != nil {
		return nil, err
	}

	return s.settle(ctx, settleRequest{
		actor: actor,
		job:   job,
		tx:    tx,
		path:  models.SettlementPathRelease,
		split: settlement.ComputeReleaseSplit(tx),
		txTo:  valueobject.TransactionStatusCompleted,
		jobTo: transition,
	})
}

// RetryRails повторяет неподтверждённые рельсы закрытой сделки с записанными ключами.
// Подтверждённые рельсы не трогаются. Полностью закрытая сделка возвращается как есть.
func (s *ResolutionService) RetryRails(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Transaction, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	tx, err := s.txs.FindLatestByJob(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	if tx.Settlement == nil {
		return nil, apperror.Detail(apperror.ErrInvalidStateForResolution, "сделка ещё не закрыта")
	}
	if tx.Settlement.State() == models.SettlementStateSettled {
		return tx, nil
	}

	var beneficiary string
	if tx.Settlement.Payout.NeedsRetry() {
		beneficiary, err = s.beneficiaryOf(ctx, job)
		if err != nil && !errors.Is(err, apperror.ErrBeneficiaryMissing) {
			return nil, err
		}
	}

	// Захватываем повтор: параллельный повтор получит ErrStaleState до вызова шлюза.
	claim := *tx.Settlement
	for _, rail := range []models.Rail{models.RailRefund, models.RailPayout} {
		if outcome := claim.RailOutcomePtr(rail); outcome.NeedsRetry() {
			outcome.Status = models.RailStatusPending
			outcome.UpdatedAt = s.now()
		}
	}
	version, err := s.txs.RecordRails(ctx, tx.ID, tx.SettlementVersion, claim)
	if err != nil {
		return nil, storeError(err)
	}
	tx.Settlement = &claim
	tx.SettlementVersion = version

	logger.WithFields(logrus.Fields{
		"job_id":         job.ID,
		"transaction_id": tx.ID,
		"requested_by":   actor.UserID,
	}).Info("escrow: retrying settlement rails")

	railCtx, cancel := detach(ctx)
	defer cancel()
	s.executeRails(railCtx, tx, job, beneficiary)
	return tx, nil
}

// GetSettlement - последняя транзакция заказа с расчётом, для участников и админа.
func (s *ResolutionService) GetSettlement(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Transaction, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	if !job.IsParticipant(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	tx, err := s.txs.FindLatestByJob(ctx, jobID)
	if err != nil {
		return nil, storeError(err)
	}
	return tx, nil
}

// ListNeedingReconciliation - сделки с неподтверждёнными рельсами для сверки.
func (s *ResolutionService) ListNeedingReconciliation(ctx context.Context, actor Actor, limit, offset int) ([]models.Transaction, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.txs.ListNeedingReconciliation(ctx, limit, offset)
}

func (s *ResolutionService) load(ctx context.Context, jobID uuid.UUID) (*models.Job, *models.Transaction, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	tx, err := s.txs.FindActiveByJob(ctx, jobID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return job, tx, nil
}

func (s *ResolutionService) beneficiaryOf(ctx context.Context, job *models.Job) (string, error) {
	if job.InstallerID == nil {
		return "", apperror.ErrBeneficiaryMissing
	}
	profile, err := s.users.GetPayoutProfile(ctx, *job.InstallerID)
	if err != nil {
		return "", storeError(err)
	}
	if !profile.HasBeneficiary() {
		return "", apperror.ErrBeneficiaryMissing
	}
	return *profile.BeneficiaryID, nil
}

// settle проверяет раздел, захватывает сделку и исполняет рельсы.
func (s *ResolutionService) settle(ctx context.Context, req settleRequest) (*models.Transaction, error) {
	if err := settlement.CheckConservation(req.tx, req.split); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "раздел средств не сходится")
	}
	if req.split.PayoutAmount > 0 {
		beneficiary, err := s.beneficiaryOf(ctx, req.job)
		if err != nil {
			return nil, err
		}
		req.beneficiary = beneficiary
	}

	now := s.now()
	record := models.Settlement{
		Path:        req.path,
		Split:       req.split,
		Rates:       req.rates,
		Refund:      s.newRail(req.job.ID, models.RailRefund, req.split.RefundAmount, now),
		Payout:      s.newRail(req.job.ID, models.RailPayout, req.split.PayoutAmount, now),
		Epoch:       settlementEpoch,
		RequestedBy: req.actor.UserID,
		SettledAt:   now,
	}
	commit := models.SettlementCommit{
		TransactionID: req.tx.ID,
		From:          req.tx.Status,
		To:            req.txTo,
		Job:           req.jobTo,
		Dispute:       req.dispute,
	}
	if req.dispute != nil {
		id := req.dispute.DisputeID
		record.DisputeID = &id
	}
	if req.split.InstallerDebt > 0 && req.job.InstallerID != nil {
		commit.Debt = &models.InstallerDebt{UserID: *req.job.InstallerID, Amount: req.split.InstallerDebt}
	}
	commit.Settlement = record

	claimed, err := s.txs.Settle(ctx, commit)
	if err != nil {
		return nil, storeError(err)
	}

	logger.WithFields(logrus.Fields{
		"job_id":         req.job.ID,
		"transaction_id": claimed.ID,
		"path":           req.path,
		"rule":           req.split.Rule,
		"refund":         req.split.RefundAmount,
		"payout":         req.split.PayoutAmount,
		"retained":       req.split.PlatformRetained,
	}).Info("escrow: settlement claimed")

	// Сделка захвачена: отмена запроса клиентом больше не должна мешать записи исходов.
	railCtx, cancel := detach(ctx)
	defer cancel()
	s.executeRails(railCtx, claimed, req.job, req.beneficiary)
	s.afterSettlement(railCtx, claimed, req.job)
	return claimed, nil
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), railsTimeout)
}

func (s *ResolutionService) newRail(jobID uuid.UUID, rail models.Rail, amount int64, now time.Time) models.RailOutcome {
	outcome := models.RailOutcome{Rail: rail, Amount: amount, UpdatedAt: now}
	if amount <= 0 {
		outcome.Status = models.RailStatusSkipped
		return outcome
	}
	op := gateway.OpRefund
	if rail == models.RailPayout {
		op = gateway.OpPayout
	}
	outcome.IdempotencyKey = gateway.IdempotencyKey(jobID, op, settlementEpoch)
	outcome.Status = models.RailStatusPending
	return outcome
}

// executeRails вызывает шлюз для каждого неподтверждённого рельса независимо
// и записывает исходы в tx. Сбой рельса - результат, а не ошибка вызова: сделка
// помечается как частично закрытая, оператор получает CRITICAL алерт.
func (s *ResolutionService) executeRails(ctx context.Context, tx *models.Transaction, job *models.Job, beneficiary string) {
	record := *tx.Settlement

	var errs []error
	for _, rail := range []models.Rail{models.RailRefund, models.RailPayout} {
		outcome := record.RailOutcomePtr(rail)
		if !outcome.NeedsRetry() {
			continue
		}
		if err := s.runRail(ctx, tx, record.Path, outcome, beneficiary); err != nil {
			errs = append(errs, err)
		}
	}
	railErr := errors.Join(errs...)

	version, err := s.txs.RecordRails(ctx, tx.ID, tx.SettlementVersion, record)
	if err != nil {
		s.alerts.Raise(ctx, models.AlertLevelCritical, models.AlertKindGatewayFailure, "исходы рельсов не записаны", map[string]any{
			"job_id":         job.ID.String(),
			"transaction_id": tx.ID.String(),
			"refund_status":  record.Refund.Status,
			"payout_status":  record.Payout.Status,
			"error":          errors.Join(railErr, err).Error(),
		})
		return
	}
	tx.Settlement = &record
	tx.SettlementVersion = version

	if railErr != nil {
		s.alerts.Raise(ctx, models.AlertLevelCritical, models.AlertKindGatewayFailure, "сделка закрыта частично: сбой платёжного рельса", map[string]any{
			"job_id":         job.ID.String(),
			"transaction_id": tx.ID.String(),
			"refund_status":  record.Refund.Status,
			"payout_status":  record.Payout.Status,
			"error":          railErr.Error(),
		})
	}
}

func (s *ResolutionService) runRail(ctx context.Context, tx *models.Transaction, path models.SettlementPath, outcome *models.RailOutcome, beneficiary string) error {
	outcome.Attempts++
	outcome.UpdatedAt = s.now()

	var (
		ref, status string
		err         error
	)
	switch outcome.Rail {
	case models.RailRefund:
		if tx.GatewayOrderID == nil {
			err = &gateway.Error{Op: "refund", Message: "gateway order id missing"}
			break
		}
		var res *gateway.RefundResult
		res, err = s.gateway.Refund(ctx, gateway.RefundRequest{
			OrderID:        *tx.GatewayOrderID,
			Amount:         outcome.Amount,
			IdempotencyKey: outcome.IdempotencyKey,
			Note:           string(path),
		})
		if err == nil {
			ref, status = res.GatewayRefundID, res.Status
		}
	case models.RailPayout:
		var res *gateway.PayoutResult
		res, err = s.gateway.Payout(ctx, gateway.PayoutRequest{
			BeneficiaryID:  beneficiary,
			Amount:         outcome.Amount,
			IdempotencyKey: outcome.IdempotencyKey,
			Remarks:        fmt.Sprintf("escrow %s", path),
		})
		if err == nil {
			ref, status = res.GatewayTransferID, res.Status
		}
	}

	if err != nil {
		outcome.Status = railStatusFor(err)
		outcome.Error = err.Error()
		outcome.Retryable = gateway.IsRetryable(err)
		logger.WithFields(logrus.Fields{
			"transaction_id": tx.ID,
			"rail":           outcome.Rail,
			"amount":         outcome.Amount,
			"key":            outcome.IdempotencyKey,
			"status":         outcome.Status,
			"error":          err.Error(),
		}).Error("escrow: rail failed")
		return fmt.Errorf("%s rail: %w", outcome.Rail, err)
	}

	outcome.Status = models.RailStatusSucceeded
	outcome.GatewayRef = ref
	outcome.GatewayStatus = status
	outcome.Error = ""
	outcome.Retryable = false
	return nil
}

// railStatusFor: таймаут или обрыв связи - исход неизвестен, остальное - отказ.
func railStatusFor(err error) models.RailStatus {
	if gateway.OutcomeUnknown(err) {
		return models.RailStatusUnknown
	}
	return models.RailStatusFailed
}

// afterSettlement - сигналы после фиксации. Их сбой не откатывает расчёт.
func (s *ResolutionService) afterSettlement(ctx context.Context, tx *models.Transaction, job *models.Job) {
	record := tx.Settlement
	split := record.Split

	if s.highValueRefund > 0 && split.RefundAmount > s.highValueRefund {
		s.alerts.Raise(ctx, models.AlertLevelWarning, models.AlertKindHighValueRefund, "крупный возврат заказчику", map[string]any{
			"job_id":         job.ID.String(),
			"transaction_id": tx.ID.String(),
			"refund":         split.RefundAmount,
			"threshold":      s.highValueRefund,
		})
	}
	if split.InstallerDebt > 0 && job.InstallerID != nil {
		s.alerts.Raise(ctx, models.AlertLevelWarning, models.AlertKindNoShowDebt, "исполнителю начислен долг за неявку", map[string]any{
			"job_id":       job.ID.String(),
			"installer_id": job.InstallerID.String(),
			"debt":         split.InstallerDebt,
		})
	}
	if record.Path == models.SettlementPathDispute {
		s.alerts.Raise(ctx, models.AlertLevelInfo, models.AlertKindDisputeResolved, "спор урегулирован", map[string]any{
			"job_id":         job.ID.String(),
			"transaction_id": tx.ID.String(),
			"rule":           split.Rule,
		})
	}

	if s.notifier == nil {
		return
	}
	event := models.SettlementEvent{
		Event:         models.EventEscrowSettled,
		JobID:         job.ID,
		TransactionID: tx.ID,
		GiverID:       job.GiverID,
		InstallerID:   job.InstallerID,
		Path:          record.Path,
		State:         record.State(),
		RefundAmount:  split.RefundAmount,
		PayoutAmount:  split.PayoutAmount,
		OccurredAt:    s.now(),
	}
	if record.Path == models.SettlementPathDispute {
		event.Event = models.EventDisputeResolved
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.WithFields(logrus.Fields{"job_id": job.ID, "error": err.Error()}).Warn("escrow: settlement notification not queued")
	}
}
