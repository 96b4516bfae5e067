package router

import (
	"net/http"

	"nexo/config"
	"nexo/internal/domain"
	"nexo/internal/handler"
	"nexo/internal/middleware"
	"nexo/internal/service"
	"nexo/internal/ws"
	"nexo/pkg/idempotency"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the long-lived components the HTTP layer serves.
type Deps struct {
	Ledger        *service.LedgerService
	Plans         *service.PlanService
	Leads         *service.LeadEngine
	TopUps        *service.TopUpService
	Notifications *service.NotificationService
	Admins        *service.AdminService
	Bookings      *service.BookingService
	Hub           *ws.Hub
	Idempotency   *idempotency.Store
	Limiter       *middleware.InMemoryRateLimiter
	Log           *logrus.Logger
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))

	leadHandler := handler.NewLeadHandler(d.Leads, d.Log)
	walletHandler := handler.NewWalletHandler(d.Ledger, d.TopUps, d.Log)
	planHandler := handler.NewPlanHandler(d.Plans, d.Log)
	notificationHandler := handler.NewNotificationHandler(d.Notifications, d.Log)
	adminHandler := handler.NewAdminHandler(d.Admins, d.Ledger, d.Log)
	bookingHandler := handler.NewBookingHandler(d.Bookings, d.Log)
	paymentWebhookHandler := handler.NewPaymentWebhookHandler(d.TopUps, cfg.Payment.WebhookSecret, cfg.UnsignedWebhooksAllowed(), d.Log)

	authMw := middleware.AuthRequired(&cfg.JWT)
	idemMw := middleware.Idempotency(d.Idempotency, d.Log)
	var rateMw gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		rateMw = middleware.RateLimit(d.Limiter)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/webhooks/payment", paymentWebhookHandler.Handle)

		// Partners accept for themselves; the back office may accept on a partner's behalf.
		api.POST("/bookings/:bookingId/accept", authMw, rateMw,
			middleware.RequireRole(domain.RolePartner, domain.RoleAdmin), idemMw, leadHandler.Accept)

		partner := api.Group("")
		partner.Use(authMw, rateMw, middleware.PartnerRequired())
		{
			partner.GET("/bookings", bookingHandler.Pending)
			partner.GET("/wallet", walletHandler.GetWallet)
			partner.GET("/wallet/transactions", walletHandler.ListTransactions)
			partner.POST("/wallet/top-ups", idemMw, walletHandler.CreateTopUp)
			partner.GET("/wallet/top-ups/:id", walletHandler.GetTopUp)
			partner.GET("/plans", planHandler.ListActive)
			partner.GET("/me/plan", planHandler.MyPlan)
			partner.POST("/me/plan/subscribe", idemMw, planHandler.Subscribe)
			partner.POST("/me/plan/renew", idemMw, planHandler.Renew)
			partner.GET("/me/plan/history", planHandler.MyHistory)
			partner.GET("/me/lead-eligibility", leadHandler.Eligibility)
			partner.GET("/me/bookings", bookingHandler.Mine)
			partner.GET("/me/notifications", notificationHandler.List)
			partner.PUT("/me/notifications/:id/read", notificationHandler.MarkRead)
			partner.POST("/me/fcm-token", notificationHandler.RegisterFCMToken)
		}
	}

	admin := r.Group("/admin")
	{
		admin.POST("/login", rateMw, adminHandler.Login)

		authed := admin.Group("")
		authed.Use(authMw, middleware.AdminRequired())
		{
			authed.GET("/partners", adminHandler.ListPartners)
			authed.POST("/partners", adminHandler.CreatePartner)
			authed.GET("/partners/:id", adminHandler.GetPartner)
			authed.PATCH("/partners/:id/wallet", adminHandler.SetWalletStatus)
			authed.GET("/partners/:id/wallet/transactions", adminHandler.ListWalletTransactions)
			authed.POST("/partners/:id/wallet/credit", idemMw, adminHandler.CreditWallet)
			authed.POST("/partners/:id/wallet/debit", idemMw, adminHandler.DebitWallet)
			authed.POST("/partners/:id/plan", planHandler.SubscribePartner)
			authed.POST("/partners/:id/plan/renew", planHandler.RenewPartner)
			authed.DELETE("/partners/:id/plan", planHandler.RemovePartnerPlan)
			authed.GET("/partners/:id/plan-history", planHandler.PartnerHistory)
			authed.PATCH("/partners/:id/plan-history/:entryId/refund", planHandler.ProcessRefund)

			authed.GET("/plans", planHandler.ListAll)
			authed.POST("/plans", planHandler.Create)
			authed.GET("/plans/:id", planHandler.Get)
			authed.PUT("/plans/:id", planHandler.Update)

			authed.GET("/bookings", bookingHandler.List)
			authed.POST("/bookings", bookingHandler.Create)
			authed.GET("/bookings/:id", bookingHandler.Get)

			authed.GET("/payment-transactions", adminHandler.ListPayments)
			authed.GET("/settings", adminHandler.ListSettings)
			authed.PUT("/settings/:key", adminHandler.UpdateSetting)
			authed.GET("/notifications", notificationHandler.List)
			authed.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}
	}

	r.GET("/ws/partner", ws.ServePartner(&cfg.JWT, d.Hub, d.Log))

	return r
}
