package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/services"
)

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignService *services.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaignService *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService}
}

type createCampaignRequest struct {
	UserID      string    `json:"userId" binding:"required"`
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Content     string    `json:"content" binding:"required"`
	From        string    `json:"from"`
	Recipients  []string  `json:"recipients" binding:"required"`
	Profile     string    `json:"profile"`
	ScheduledAt time.Time `json:"scheduledAt"`
	CreatedBy   string    `json:"createdBy"`
}

// CreateCampaign handles POST /campaigns
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	campaign := &models.Campaign{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		From:        req.From,
		Recipients:  req.Recipients,
		Profile:     req.Profile,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   req.CreatedBy,
	}
	if !req.ScheduledAt.IsZero() {
		campaign.Status = models.CampaignStatusScheduled
	}

	if err := h.campaignService.CreateCampaign(c, campaign); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// GetCampaignByID handles GET /campaigns/:id
func (h *CampaignHandler) GetCampaignByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	campaign, err := h.campaignService.GetCampaignByID(c, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// GetCampaignsByUserID handles GET /campaigns/user/:userId
func (h *CampaignHandler) GetCampaignsByUserID(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	campaigns, err := h.campaignService.GetCampaignsByUserID(c, userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaigns: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

// ExecuteCampaign handles POST /campaigns/:id/execute
func (h *CampaignHandler) ExecuteCampaign(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	campaign, err := h.campaignService.ExecuteCampaign(c, id)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to execute campaign: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// CancelCampaign handles POST /campaigns/:id/cancel
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	campaign, err := h.campaignService.CancelCampaign(c, id)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to cancel campaign: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, campaign)
}
