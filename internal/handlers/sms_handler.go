package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/services"
)

// SmsHandler handles single-message HTTP requests
type SmsHandler struct {
	smsService *services.SmsService
}

// NewSmsHandler creates a new SmsHandler
func NewSmsHandler(smsService *services.SmsService) *SmsHandler {
	return &SmsHandler{smsService: smsService}
}

type sendSmsRequest struct {
	UserID  string `json:"userId" binding:"required"`
	To      string `json:"to" binding:"required"`
	From    string `json:"from"`
	Content string `json:"content" binding:"required"`
	Profile string `json:"profile"`
}

// SendSMS handles POST /sms/send
func (h *SmsHandler) SendSMS(c *gin.Context) {
	var req sendSmsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	message, result, err := h.smsService.SendSingle(c, services.SendSingleInput{
		UserID:  userID,
		To:      req.To,
		From:    req.From,
		Content: req.Content,
		Profile: req.Profile,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to send message: " + err.Error()})
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"message": message, "result": result})
}

// GetMessageByID handles GET /sms/messages/:id
func (h *SmsHandler) GetMessageByID(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	message, err := h.smsService.GetMessageByID(c, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, message)
}

// GetMessagesByUserID handles GET /sms/messages/user/:userId
func (h *SmsHandler) GetMessagesByUserID(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	messages, err := h.smsService.GetMessagesByUserID(c, userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get messages: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}
