package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/repositories"
	"github.com/sipharbor/sms-platform/internal/services"
)

// BillingHandler handles billing-related HTTP requests
type BillingHandler struct {
	billingService *services.BillingService
	recordRepo     repositories.BillingRecordRepository
	settingsRepo   repositories.BillingSettingsRepository
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *services.BillingService, recordRepo repositories.BillingRecordRepository, settingsRepo repositories.BillingSettingsRepository) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		recordRepo:     recordRepo,
		settingsRepo:   settingsRepo,
	}
}

// GetCurrentUsage handles GET /billing/usage/:userId
func (h *BillingHandler) GetCurrentUsage(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	usage, err := h.billingService.GetCurrentUsage(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get usage: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, usage)
}

// GetBillingSummary handles GET /billing/summary/:userId
func (h *BillingHandler) GetBillingSummary(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	summary, err := h.billingService.GetUserBillingSummary(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get billing summary: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetBillingRecords handles GET /billing/records/:userId
func (h *BillingHandler) GetBillingRecords(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.recordRepo.FindByUserID(c, userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get billing records: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

type createBillingRecordRequest struct {
	UserID      string `json:"userId" binding:"required"`
	TriggerType string `json:"triggerType" binding:"required"`
	BillingType string `json:"billingType"`
}

// CreateBillingRecord handles POST /billing/records
func (h *BillingHandler) CreateBillingRecord(c *gin.Context) {
	var req createBillingRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	billingType := req.BillingType
	if billingType == "" {
		billingType = models.BillingTypeSingle
	}

	record, err := h.billingService.CreateBillingRecord(c, userID, req.TriggerType, billingType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create billing record: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ProcessCampaignBilling handles POST /billing/campaigns/:id/process
func (h *BillingHandler) ProcessCampaignBilling(c *gin.Context) {
	campaignID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID format"})
		return
	}

	record, err := h.billingService.ProcessCampaignBilling(c, campaignID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to process campaign billing: " + err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}

	c.JSON(http.StatusCreated, record)
}

type updateRecordStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBillingRecordStatus handles PUT /billing/records/:id/status
func (h *BillingHandler) UpdateBillingRecordStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req updateRecordStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	switch req.Status {
	case models.BillingStatusPending, models.BillingStatusPaid, models.BillingStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown billing status: " + req.Status})
		return
	}

	if err := h.recordRepo.UpdateStatus(c, id, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update billing record: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// GetBillingSettings handles GET /billing/settings/:userId
func (h *BillingHandler) GetBillingSettings(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	settings, err := h.settingsRepo.FindByUserID(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get billing settings: " + err.Error()})
		return
	}
	if settings == nil {
		settings, err = h.settingsRepo.FindGlobal(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get billing settings: " + err.Error()})
			return
		}
	}
	if settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No billing settings configured"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

type upsertSettingsRequest struct {
	UserID      string  `json:"userId"`
	IsActive    bool    `json:"isActive"`
	Frequency   string  `json:"frequency" binding:"required"`
	MaxAmount   float64 `json:"maxAmount"`
	MaxMessages int     `json:"maxMessages"`
	AutoProcess bool    `json:"autoProcess"`
	UpdatedBy   string  `json:"updatedBy"`
}

// UpsertBillingSettings handles PUT /billing/settings
func (h *BillingHandler) UpsertBillingSettings(c *gin.Context) {
	var req upsertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	switch req.Frequency {
	case models.BillingFrequencyDaily, models.BillingFrequencyWeekly,
		models.BillingFrequencyMonthly, models.BillingFrequencyThreshold:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown billing frequency: " + req.Frequency})
		return
	}

	settings := &models.BillingSettings{
		IsActive:    req.IsActive,
		Frequency:   req.Frequency,
		MaxAmount:   req.MaxAmount,
		MaxMessages: req.MaxMessages,
		AutoProcess: req.AutoProcess,
		UpdatedBy:   req.UpdatedBy,
	}
	if req.UserID != "" {
		userID, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
			return
		}
		settings.UserID = userID
	}

	if err := h.settingsRepo.Upsert(c, settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save billing settings: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}
