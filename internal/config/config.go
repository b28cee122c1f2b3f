package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Webhook    WebhookConfig
	Billing    BillingConfig
	Simulation SimulationConfig
	LogLevel   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// WebhookConfig holds delivery-report webhook configuration. BaseURL is
// where the simulator posts reports back; Secret signs the bearer token.
type WebhookConfig struct {
	BaseURL  string
	Secret   string
	TokenTTL time.Duration
	Timeout  time.Duration
}

// BillingConfig holds billing processor configuration
type BillingConfig struct {
	Endpoint string
}

// SimulationConfig holds simulator defaults
type SimulationConfig struct {
	DefaultProfile string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			AllowedHosts: viper.GetStringSlice("SERVER_ALLOWED_HOSTS"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
		},
		Webhook: WebhookConfig{
			BaseURL:  viper.GetString("WEBHOOK_BASE_URL"),
			Secret:   viper.GetString("WEBHOOK_SECRET"),
			TokenTTL: viper.GetDuration("WEBHOOK_TOKEN_TTL"),
			Timeout:  viper.GetDuration("WEBHOOK_TIMEOUT"),
		},
		Billing: BillingConfig{
			Endpoint: viper.GetString("BILLING_ENDPOINT"),
		},
		Simulation: SimulationConfig{
			DefaultProfile: viper.GetString("SIMULATION_DEFAULT_PROFILE"),
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ALLOWED_HOSTS", []string{"*"})
	viper.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGODB_DATABASE", "sms_platform")
	viper.SetDefault("WEBHOOK_BASE_URL", "http://localhost:8080/api/v1")
	viper.SetDefault("WEBHOOK_SECRET", "dev-webhook-secret")
	viper.SetDefault("WEBHOOK_TOKEN_TTL", "1h")
	viper.SetDefault("WEBHOOK_TIMEOUT", "10s")
	viper.SetDefault("BILLING_ENDPOINT", "")
	viper.SetDefault("SIMULATION_DEFAULT_PROFILE", "standard")
	viper.SetDefault("LOG_LEVEL", "info")
}
