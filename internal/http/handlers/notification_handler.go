package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers/common"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/pkg/apperror"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit := common.ParseIntQuery(c, "limit", 20)
	offset := common.ParseIntQuery(c, "offset", 0)
	unreadOnly := c.Query("unread_only") == "true"

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), actor.UserID, limit, offset, unreadOnly)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// MarkAsRead обрабатывает PUT /notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.Fail(c, apperror.Detail(apperror.ErrValidation, "неверный идентификатор уведомления"))
		return
	}

	if err := h.notifications.MarkAsRead(c.Request.Context(), id, actor.UserID); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, "уведомление отмечено как прочитанное", nil)
}

// CountUnread обрабатывает GET /notifications/unread/count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	count, err := h.notifications.CountUnread(c.Request.Context(), actor.UserID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
