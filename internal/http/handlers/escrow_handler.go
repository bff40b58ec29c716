package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/dto"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers/common"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// Lifecycle - переходы заказа без денежного расчёта.
type Lifecycle interface {
	Award(ctx context.Context, actor service.Actor, jobID uuid.UUID, installer models.PartyRef, bidAmount, tip int64, startAt *time.Time) (*models.Job, error)
	InitiateFunding(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*service.FundingSession, error)
	ConfirmFunding(ctx context.Context, actor service.Actor, jobID uuid.UUID, gatewayOrderID string) (*models.Transaction, error)
	StartWork(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error)
	SubmitWork(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error)
	CancelUnfunded(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error)
	RaiseDispute(ctx context.Context, actor service.Actor, jobID uuid.UUID, reason string) (*models.Dispute, error)
}

// Resolution - закрытие escrow.
type Resolution interface {
	Cancel(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)
	ClaimNoShow(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)
	Release(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)
	ResolveDispute(ctx context.Context, actor service.Actor, jobID uuid.UUID, resolution models.DisputeResolutionType, splitPercentage *float64) (*models.Transaction, error)
	RetryRails(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)
	GetSettlement(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)
	ListNeedingReconciliation(ctx context.Context, actor service.Actor, limit, offset int) ([]models.Transaction, error)
}

// EscrowHandler обслуживает маршруты жизненного цикла заказа и расчётов.
type EscrowHandler struct {
	lifecycle  Lifecycle
	resolution Resolution
}

// NewEscrowHandler создаёт новый хэндлер.
func NewEscrowHandler(lifecycle Lifecycle, resolution Resolution) *EscrowHandler {
	return &EscrowHandler{lifecycle: lifecycle, resolution: resolution}
}

// jobRequest достаёт инициатора и заказ из запроса.
func jobRequest(c *gin.Context) (service.Actor, uuid.UUID, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.Fail(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	return actor, jobID, true
}

// Award обрабатывает POST /jobs/:jobId/award.
func (h *EscrowHandler) Award(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	var req dto.AwardRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	job, err := h.lifecycle.Award(c.Request.Context(), actor, jobID, req.Installer, req.BidAmount, req.Tip, req.StartAt)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// InitiateFunding обрабатывает POST /jobs/:jobId/funding.
func (h *EscrowHandler) InitiateFunding(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	session, err := h.lifecycle.InitiateFunding(c.Request.Context(), actor, jobID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ConfirmFunding обрабатывает POST /jobs/:jobId/funding/confirm.
func (h *EscrowHandler) ConfirmFunding(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	var req dto.ConfirmFundingRequest
	if c.Request.ContentLength != 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}

	tx, err := h.lifecycle.ConfirmFunding(c.Request.Context(), actor, jobID, req.GatewayOrderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettlementResponse(tx))
}

// StartWork обрабатывает POST /jobs/:jobId/start.
func (h *EscrowHandler) StartWork(c *gin.Context) {
	h.jobAction(c, h.lifecycle.StartWork)
}

// SubmitWork обрабатывает POST /jobs/:jobId/submit.
func (h *EscrowHandler) SubmitWork(c *gin.Context) {
	h.jobAction(c, h.lifecycle.SubmitWork)
}

// CancelUnfunded обрабатывает POST /jobs/:jobId/cancel-unfunded.
func (h *EscrowHandler) CancelUnfunded(c *gin.Context) {
	h.jobAction(c, h.lifecycle.CancelUnfunded)
}

// RaiseDispute обрабатывает POST /jobs/:jobId/dispute.
func (h *EscrowHandler) RaiseDispute(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	var req dto.RaiseDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.lifecycle.RaiseDispute(c.Request.Context(), actor, jobID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// Cancel обрабатывает POST /jobs/:jobId/cancel.
func (h *EscrowHandler) Cancel(c *gin.Context) {
	h.settlementAction(c, h.resolution.Cancel)
}

// ClaimNoShow обрабатывает POST /jobs/:jobId/no-show.
func (h *EscrowHandler) ClaimNoShow(c *gin.Context) {
	h.settlementAction(c, h.resolution.ClaimNoShow)
}

// Release обрабатывает POST /jobs/:jobId/release.
func (h *EscrowHandler) Release(c *gin.Context) {
	h.settlementAction(c, h.resolution.Release)
}

// GetSettlement обрабатывает GET /jobs/:jobId/settlement.
func (h *EscrowHandler) GetSettlement(c *gin.Context) {
	h.settlementAction(c, h.resolution.GetSettlement)
}

// ResolveDispute обрабатывает POST /admin/jobs/:jobId/resolve-dispute.
func (h *EscrowHandler) ResolveDispute(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	tx, err := h.resolution.ResolveDispute(c.Request.Context(), actor, jobID, req.Resolution, req.SplitPercentage)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettlementResponse(tx))
}

// RetryRails обрабатывает POST /admin/jobs/:jobId/retry-rails.
func (h *EscrowHandler) RetryRails(c *gin.Context) {
	h.settlementAction(c, h.resolution.RetryRails)
}

// ListNeedingReconciliation обрабатывает GET /admin/reconciliation.
func (h *EscrowHandler) ListNeedingReconciliation(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	txs, err := h.resolution.ListNeedingReconciliation(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}

	items := make([]*dto.SettlementResponse, 0, len(txs))
	for i := range txs {
		items = append(items, dto.NewSettlementResponse(&txs[i]))
	}
	c.JSON(http.StatusOK, dto.NewListResponse(items, limit, offset))
}

type jobActionFunc func(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error)

func (h *EscrowHandler) jobAction(c *gin.Context, action jobActionFunc) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	job, err := action(c.Request.Context(), actor, jobID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type settlementActionFunc func(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Transaction, error)

func (h *EscrowHandler) settlementAction(c *gin.Context, action settlementActionFunc) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	tx, err := action(c.Request.Context(), actor, jobID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettlementResponse(tx))
}
