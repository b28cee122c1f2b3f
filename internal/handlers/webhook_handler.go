package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"github.com/sipharbor/sms-platform/internal/services"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
	"github.com/sipharbor/sms-platform/pkg/webhooktoken"
)

// WebhookHandler receives delivery reports posted back by the simulated
// gateway and applies them to stored messages.
type WebhookHandler struct {
	smsService *services.SmsService
	tokens     *webhooktoken.Service
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(smsService *services.SmsService, tokens *webhooktoken.Service) *WebhookHandler {
	return &WebhookHandler{smsService: smsService, tokens: tokens}
}

type deliveryReportRequest struct {
	MessageID         string `json:"messageId" binding:"required"`
	ProviderMessageID string `json:"providerMessageId"`
	Status            string `json:"status" binding:"required"`
	Timestamp         string `json:"timestamp"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
	ProviderID        string `json:"providerId"`
}

// ReceiveDeliveryReport handles POST /sms/webhook/delivery. The request
// must carry the simulator's source header and a valid bearer token.
func (h *WebhookHandler) ReceiveDeliveryReport(c *gin.Context) {
	if c.GetHeader("X-Webhook-Source") != "simulation" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unknown webhook source"})
		return
	}

	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}
	if _, err := h.tokens.Verify(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
		return
	}

	var req deliveryReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	report := &smsgateway.DeliveryReport{
		MessageID:         req.MessageID,
		ProviderMessageID: req.ProviderMessageID,
		Status:            req.Status,
		ErrorCode:         req.ErrorCode,
		ErrorMessage:      req.ErrorMessage,
		ProviderID:        req.ProviderID,
	}
	if req.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			report.Timestamp = ts
		}
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	if err := h.smsService.ApplyDeliveryReport(c, report); err != nil {
		slog.Error("failed to apply delivery report", "messageId", req.MessageID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply delivery report: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": true})
}
