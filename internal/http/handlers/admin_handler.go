package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/dto"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers/common"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// AdminHandler - панель оператора: алерты и ставки платформы.
type AdminHandler struct {
	alerts   *service.AlertService
	settings *service.SettingsService
}

func NewAdminHandler(alerts *service.AlertService, settings *service.SettingsService) *AdminHandler {
	return &AdminHandler{alerts: alerts, settings: settings}
}

// ListAlerts GET /admin/alerts?unread_only=true
func (h *AdminHandler) ListAlerts(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	unreadOnly := c.Query("unread_only") == "true"

	alerts, err := h.alerts.List(c.Request.Context(), limit, offset, unreadOnly)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(alerts, limit, offset))
}

// MarkAlertRead PUT /admin/alerts/:id/read
func (h *AdminHandler) MarkAlertRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.Fail(c, apperror.Detail(apperror.ErrValidation, "неверный идентификатор алерта"))
		return
	}

	if err := h.alerts.MarkRead(c.Request.Context(), id); err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondSuccess(c, "алерт отмечен как прочитанный", nil)
}

// GetRates GET /admin/settings/rates
func (h *AdminHandler) GetRates(c *gin.Context) {
	rates, err := h.settings.Current(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// UpdateRates PUT /admin/settings/rates
func (h *AdminHandler) UpdateRates(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateRatesRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	rates, err := h.settings.Update(c.Request.Context(), actor, req.Rates())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}
