package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/dto"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers/common"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

type DisputeHandler struct {
	svc *service.DisputeService
}

func NewDisputeHandler(s *service.DisputeService) *DisputeHandler {
	return &DisputeHandler{svc: s}
}

// GetOpenDispute GET /jobs/:jobId/dispute
func (h *DisputeHandler) GetOpenDispute(c *gin.Context) {
	actor, jobID, ok := jobRequest(c)
	if !ok {
		return
	}

	dispute, err := h.svc.GetOpenDispute(c.Request.Context(), actor, jobID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// ListMyDisputes GET /disputes
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	list, err := h.svc.ListUserDisputes(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(list, limit, offset))
}

// ListOpenDisputes GET /admin/disputes
func (h *DisputeHandler) ListOpenDisputes(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	list, err := h.svc.ListOpen(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(list, limit, offset))
}
