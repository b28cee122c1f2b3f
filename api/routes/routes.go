package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/sipharbor/sms-platform/internal/config"
	"github.com/sipharbor/sms-platform/internal/handlers"
	"github.com/sipharbor/sms-platform/internal/middleware"
)

// Handlers bundles the constructed handlers the router wires up.
type Handlers struct {
	Sms        *handlers.SmsHandler
	Campaign   *handlers.CampaignHandler
	Billing    *handlers.BillingHandler
	Simulation *handlers.SimulationHandler
	Webhook    *handlers.WebhookHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		sms := api.Group("/sms")
		{
			sms.POST("/send", h.Sms.SendSMS)
			sms.GET("/messages/:id", h.Sms.GetMessageByID)
			sms.GET("/messages/user/:userId", h.Sms.GetMessagesByUserID)
			sms.POST("/webhook/delivery", h.Webhook.ReceiveDeliveryReport)
		}

		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", h.Campaign.CreateCampaign)
			campaigns.GET("/:id", h.Campaign.GetCampaignByID)
			campaigns.GET("/user/:userId", h.Campaign.GetCampaignsByUserID)
			campaigns.POST("/:id/execute", h.Campaign.ExecuteCampaign)
			campaigns.POST("/:id/cancel", h.Campaign.CancelCampaign)
		}

		billing := api.Group("/billing")
		{
			billing.GET("/usage/:userId", h.Billing.GetCurrentUsage)
			billing.GET("/summary/:userId", h.Billing.GetBillingSummary)
			billing.GET("/records/:userId", h.Billing.GetBillingRecords)
			billing.POST("/records", h.Billing.CreateBillingRecord)
			billing.PUT("/records/:id/status", h.Billing.UpdateBillingRecordStatus)
			billing.POST("/campaigns/:id/process", h.Billing.ProcessCampaignBilling)
			billing.GET("/settings/:userId", h.Billing.GetBillingSettings)
			billing.PUT("/settings", h.Billing.UpsertBillingSettings)
		}

		simulation := api.Group("/simulation")
		{
			simulation.GET("/profiles", h.Simulation.GetProfiles)
			simulation.GET("/profiles/:name", h.Simulation.GetProfile)
			simulation.PUT("/profiles/:name", h.Simulation.UpdateProfile)
			simulation.GET("/stats", h.Simulation.GetStats)
			simulation.POST("/reset", h.Simulation.Reset)
			simulation.POST("/tracking/clear", h.Simulation.ClearTracking)
		}
	}

	return router
}
