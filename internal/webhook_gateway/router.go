package webhook_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/handler"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures API routes and middleware for the gateway
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	authCfg *config.AuthConfig,
	webhookHandler *handler.WebhookHandler,
	donorHandler *handler.DonorHandler,
	beneficiaryHandler *handler.BeneficiaryHandler,
	adminHandler *handler.AdminHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Payment processor callbacks, authenticated by signature only
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/payment", webhookHandler.HandlePayment)
		}

		// Donor-facing endpoints, identity comes from the verified token
		donors := v1.Group("/donors", middleware.Auth(logger, authCfg.JWTSecret, authCfg.Issuer))
		{
			donors.GET("/me/history", donorHandler.GetHistory)
		}

		// Public read-side endpoints
		beneficiaries := v1.Group("/beneficiaries")
		{
			beneficiaries.GET("/:id/sponsors", beneficiaryHandler.GetSponsors)
		}
		v1.GET("/dashboard", beneficiaryHandler.GetDashboard)

		// Operator endpoints
		admin := v1.Group("/admin", middleware.RequireAdmin(logger, authCfg.JWTSecret, authCfg.Issuer))
		{
			admin.POST("/reconcile", adminHandler.Reconcile)
			admin.GET("/reconcile/latest", adminHandler.LatestReport)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus exposition on the main port
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
