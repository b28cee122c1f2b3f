package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sipharbor/sms-platform/pkg/smsgateway"
)

// SimulationHandler exposes the simulator's operational surface: profile
// inspection and tuning, tracking stats and teardown.
type SimulationHandler struct {
	simulator *smsgateway.Simulator
}

// NewSimulationHandler creates a new SimulationHandler
func NewSimulationHandler(simulator *smsgateway.Simulator) *SimulationHandler {
	return &SimulationHandler{simulator: simulator}
}

// providerConfigDTO mirrors ProviderConfig with delays in milliseconds,
// matching how clients tune the simulator.
type providerConfigDTO struct {
	ProviderID           string  `json:"providerId"`
	ProviderName         string  `json:"providerName"`
	SuccessRate          float64 `json:"successRate"`
	DeliveryRate         float64 `json:"deliveryRate"`
	MinDelayMs           int64   `json:"minDelayMs"`
	MaxDelayMs           int64   `json:"maxDelayMs"`
	DeliveryDelayMs      int64   `json:"deliveryDelayMs"`
	TemporaryFailureRate float64 `json:"temporaryFailureRate"`
	PermanentFailureRate float64 `json:"permanentFailureRate"`
	BlacklistSimulation  bool    `json:"blacklistSimulation"`
	RateLimitSimulation  bool    `json:"rateLimitSimulation"`
	MaxConcurrent        int     `json:"maxConcurrent"`
}

func toConfigDTO(cfg *smsgateway.ProviderConfig) providerConfigDTO {
	return providerConfigDTO{
		ProviderID:           cfg.ProviderID,
		ProviderName:         cfg.ProviderName,
		SuccessRate:          cfg.SuccessRate,
		DeliveryRate:         cfg.DeliveryRate,
		MinDelayMs:           cfg.MinDelay.Milliseconds(),
		MaxDelayMs:           cfg.MaxDelay.Milliseconds(),
		DeliveryDelayMs:      cfg.DeliveryDelay.Milliseconds(),
		TemporaryFailureRate: cfg.TemporaryFailureRate,
		PermanentFailureRate: cfg.PermanentFailureRate,
		BlacklistSimulation:  cfg.BlacklistSimulation,
		RateLimitSimulation:  cfg.RateLimitSimulation,
		MaxConcurrent:        cfg.MaxConcurrent,
	}
}

// GetProfiles handles GET /simulation/profiles
func (h *SimulationHandler) GetProfiles(c *gin.Context) {
	names := h.simulator.ProfileNames()
	profiles := make(map[string]providerConfigDTO, len(names))
	for _, name := range names {
		if cfg := h.simulator.GetConfig(name); cfg != nil {
			profiles[name] = toConfigDTO(cfg)
		}
	}
	c.JSON(http.StatusOK, profiles)
}

// GetProfile handles GET /simulation/profiles/:name
func (h *SimulationHandler) GetProfile(c *gin.Context) {
	cfg := h.simulator.GetConfig(c.Param("name"))
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown profile: " + c.Param("name")})
		return
	}
	c.JSON(http.StatusOK, toConfigDTO(cfg))
}

type updateProfileRequest struct {
	SuccessRate          *float64 `json:"successRate"`
	DeliveryRate         *float64 `json:"deliveryRate"`
	MinDelayMs           *int64   `json:"minDelayMs"`
	MaxDelayMs           *int64   `json:"maxDelayMs"`
	DeliveryDelayMs      *int64   `json:"deliveryDelayMs"`
	TemporaryFailureRate *float64 `json:"temporaryFailureRate"`
	PermanentFailureRate *float64 `json:"permanentFailureRate"`
	BlacklistSimulation  *bool    `json:"blacklistSimulation"`
	RateLimitSimulation  *bool    `json:"rateLimitSimulation"`
	MaxConcurrent        *int     `json:"maxConcurrent"`
}

// UpdateProfile handles PUT /simulation/profiles/:name
func (h *SimulationHandler) UpdateProfile(c *gin.Context) {
	name := c.Param("name")
	if h.simulator.GetConfig(name) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown profile: " + name})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	update := smsgateway.ConfigUpdate{
		SuccessRate:          req.SuccessRate,
		DeliveryRate:         req.DeliveryRate,
		TemporaryFailureRate: req.TemporaryFailureRate,
		PermanentFailureRate: req.PermanentFailureRate,
		BlacklistSimulation:  req.BlacklistSimulation,
		RateLimitSimulation:  req.RateLimitSimulation,
		MaxConcurrent:        req.MaxConcurrent,
	}
	if req.MinDelayMs != nil {
		d := time.Duration(*req.MinDelayMs) * time.Millisecond
		update.MinDelay = &d
	}
	if req.MaxDelayMs != nil {
		d := time.Duration(*req.MaxDelayMs) * time.Millisecond
		update.MaxDelay = &d
	}
	if req.DeliveryDelayMs != nil {
		d := time.Duration(*req.DeliveryDelayMs) * time.Millisecond
		update.DeliveryDelay = &d
	}

	h.simulator.UpdateConfig(name, update)
	c.JSON(http.StatusOK, toConfigDTO(h.simulator.GetConfig(name)))
}

// GetStats handles GET /simulation/stats
func (h *SimulationHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.simulator.TrackingStats())
}

// Reset handles POST /simulation/reset
func (h *SimulationHandler) Reset(c *gin.Context) {
	h.simulator.Reset()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// ClearTracking handles POST /simulation/tracking/clear. An empty scope
// clears every pending delivery report.
func (h *SimulationHandler) ClearTracking(c *gin.Context) {
	scope := c.Query("scope")
	cleared := h.simulator.ClearDeliveryReportTracking(scope)
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
