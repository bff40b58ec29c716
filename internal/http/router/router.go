package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/config"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/handlers"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/http/middleware"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/service"
)

// Handlers - всё, что монтируется в роутер.
type Handlers struct {
	Escrow        *handlers.EscrowHandler
	Disputes      *handlers.DisputeHandler
	Admin         *handlers.AdminHandler
	Notifications *handlers.NotificationHandler
	Profile       *handlers.ProfileHandler
	Health        *handlers.HealthHandler
	WS            *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api/v1")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	protected.Use(middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))

	jobs := protected.Group("/jobs/:jobId")
	jobs.Use(middleware.UUIDValidator("jobId"))
	{
		jobs.POST("/award", h.Escrow.Award)
		jobs.POST("/funding", h.Escrow.InitiateFunding)
		jobs.POST("/funding/confirm", h.Escrow.ConfirmFunding)
		jobs.POST("/start", h.Escrow.StartWork)
		jobs.POST("/submit", h.Escrow.SubmitWork)
		jobs.POST("/cancel-unfunded", h.Escrow.CancelUnfunded)

		jobs.POST("/cancel", h.Escrow.Cancel)
		jobs.POST("/no-show", h.Escrow.ClaimNoShow)
		jobs.POST("/release", h.Escrow.Release)
		jobs.GET("/settlement", h.Escrow.GetSettlement)

		jobs.POST("/dispute", h.Escrow.RaiseDispute)
		jobs.GET("/dispute", h.Disputes.GetOpenDispute)
	}

	protected.GET("/disputes", h.Disputes.ListMyDisputes)

	protected.GET("/me/payout-profile", h.Profile.GetPayoutProfile)
	protected.PUT("/me/payout-profile", h.Profile.SetBeneficiary)

	protected.GET("/notifications", h.Notifications.ListNotifications)
	protected.GET("/notifications/unread/count", h.Notifications.CountUnread)
	protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/jobs/:jobId/resolve-dispute", middleware.UUIDValidator("jobId"), h.Escrow.ResolveDispute)
		admin.POST("/jobs/:jobId/retry-rails", middleware.UUIDValidator("jobId"), h.Escrow.RetryRails)
		admin.GET("/reconciliation", h.Escrow.ListNeedingReconciliation)
		admin.GET("/disputes", h.Disputes.ListOpenDisputes)

		admin.GET("/alerts", h.Admin.ListAlerts)
		admin.PUT("/alerts/:id/read", middleware.UUIDValidator("id"), h.Admin.MarkAlertRead)

		admin.GET("/settings/rates", h.Admin.GetRates)
		admin.PUT("/settings/rates", h.Admin.UpdateRates)
	}

	return r
}
