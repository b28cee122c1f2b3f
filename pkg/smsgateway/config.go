package smsgateway

import "time"

// ProviderConfig holds the simulation profile for a named SMS gateway.
// Rates are probabilities in [0,1]; TemporaryFailureRate and
// PermanentFailureRate partition the failure space and by convention sum
// to roughly 1 - SuccessRate.
type ProviderConfig struct {
	ProviderID           string
	ProviderName         string
	SuccessRate          float64
	DeliveryRate         float64
	MinDelay             time.Duration
	MaxDelay             time.Duration
	DeliveryDelay        time.Duration
	TemporaryFailureRate float64
	PermanentFailureRate float64
	BlacklistSimulation  bool
	RateLimitSimulation  bool
	MaxConcurrent        int
}

// ConfigUpdate carries a partial profile update. Nil fields are left
// untouched. Values are not validated; callers are trusted.
type ConfigUpdate struct {
	SuccessRate          *float64
	DeliveryRate         *float64
	MinDelay             *time.Duration
	MaxDelay             *time.Duration
	DeliveryDelay        *time.Duration
	TemporaryFailureRate *float64
	PermanentFailureRate *float64
	BlacklistSimulation  *bool
	RateLimitSimulation  *bool
	MaxConcurrent        *int
}

// defaultConfigs returns the simulation profiles shipped with the gateway.
func defaultConfigs() map[string]*ProviderConfig {
	return map[string]*ProviderConfig{
		"premium": {
			ProviderID:           "sim-premium",
			ProviderName:         "Premium Route",
			SuccessRate:          0.98,
			DeliveryRate:         0.95,
			MinDelay:             50 * time.Millisecond,
			MaxDelay:             200 * time.Millisecond,
			DeliveryDelay:        2 * time.Second,
			TemporaryFailureRate: 0.015,
			PermanentFailureRate: 0.005,
			BlacklistSimulation:  false,
			RateLimitSimulation:  false,
			MaxConcurrent:        50,
		},
		"standard": {
			ProviderID:           "sim-standard",
			ProviderName:         "Standard Route",
			SuccessRate:          0.95,
			DeliveryRate:         0.90,
			MinDelay:             100 * time.Millisecond,
			MaxDelay:             500 * time.Millisecond,
			DeliveryDelay:        5 * time.Second,
			TemporaryFailureRate: 0.03,
			PermanentFailureRate: 0.02,
			BlacklistSimulation:  true,
			RateLimitSimulation:  true,
			MaxConcurrent:        20,
		},
		"budget": {
			ProviderID:           "sim-budget",
			ProviderName:         "Budget Route",
			SuccessRate:          0.85,
			DeliveryRate:         0.80,
			MinDelay:             500 * time.Millisecond,
			MaxDelay:             2 * time.Second,
			DeliveryDelay:        15 * time.Second,
			TemporaryFailureRate: 0.10,
			PermanentFailureRate: 0.05,
			BlacklistSimulation:  true,
			RateLimitSimulation:  true,
			MaxConcurrent:        10,
		},
		"testing": {
			ProviderID:           "sim-testing",
			ProviderName:         "Testing Route",
			SuccessRate:          1.0,
			DeliveryRate:         1.0,
			MinDelay:             10 * time.Millisecond,
			MaxDelay:             50 * time.Millisecond,
			DeliveryDelay:        100 * time.Millisecond,
			TemporaryFailureRate: 0.0,
			PermanentFailureRate: 0.0,
			BlacklistSimulation:  false,
			RateLimitSimulation:  false,
			MaxConcurrent:        5,
		},
	}
}

// GetConfig returns a copy of the named profile, or nil if the name is
// unknown.
func (s *Simulator) GetConfig(name string) *ProviderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[name]
	if !ok {
		return nil
	}
	snap := *cfg
	return &snap
}

// ProfileNames returns the registered profile names.
func (s *Simulator) ProfileNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	return names
}

// UpdateConfig merges a partial update into the named profile. Updating an
// unknown profile is a no-op.
func (s *Simulator) UpdateConfig(name string, update ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[name]
	if !ok {
		return
	}
	if update.SuccessRate != nil {
		cfg.SuccessRate = *update.SuccessRate
	}
	if update.DeliveryRate != nil {
		cfg.DeliveryRate = *update.DeliveryRate
	}
	if update.MinDelay != nil {
		cfg.MinDelay = *update.MinDelay
	}
	if update.MaxDelay != nil {
		cfg.MaxDelay = *update.MaxDelay
	}
	if update.DeliveryDelay != nil {
		cfg.DeliveryDelay = *update.DeliveryDelay
	}
	if update.TemporaryFailureRate != nil {
		cfg.TemporaryFailureRate = *update.TemporaryFailureRate
	}
	if update.PermanentFailureRate != nil {
		cfg.PermanentFailureRate = *update.PermanentFailureRate
	}
	if update.BlacklistSimulation != nil {
		cfg.BlacklistSimulation = *update.BlacklistSimulation
	}
	if update.RateLimitSimulation != nil {
		cfg.RateLimitSimulation = *update.RateLimitSimulation
	}
	if update.MaxConcurrent != nil {
		cfg.MaxConcurrent = *update.MaxConcurrent
	}
}
