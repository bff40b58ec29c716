package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/dto"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers/common"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// ProfileHandler отвечает за реквизиты выплат текущего пользователя.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler создаёт экземпляр.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetPayoutProfile обрабатывает GET /me/payout-profile.
func (h *ProfileHandler) GetPayoutProfile(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.PayoutProfile(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// SetBeneficiary обрабатывает PUT /me/payout-profile.
func (h *ProfileHandler) SetBeneficiary(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.SetBeneficiaryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.SetBeneficiary(c.Request.Context(), actor, req.BeneficiaryID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
