package util

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AllowedOrigins      []string      `mapstructure:"ALLOWED_ORIGINS"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	HTTPServerAddress   string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	TokenSecretKey      string        `mapstructure:"TOKEN_SECRET_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	RedisServerAddress  string        `mapstructure:"REDIS_SERVER_ADDRESS"`
	WebhookEndpoint     string        `mapstructure:"WEBHOOK_ENDPOINT"`
	WebhookTimeout      time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	DedupWindow         time.Duration `mapstructure:"DEDUP_WINDOW"`
	DedupBackend        string        `mapstructure:"DEDUP_BACKEND"`
	ReconcileInterval   time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	MailNudgeWindow     time.Duration `mapstructure:"MAIL_NUDGE_WINDOW"`
	SMTPHost            string        `mapstructure:"SMTP_HOST"`
	SMTPPort            int           `mapstructure:"SMTP_PORT"`
	SMTPUsername        string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword        string        `mapstructure:"SMTP_PASSWORD"`
	SMTPSenderName      string        `mapstructure:"SMTP_SENDER_NAME"`
	SMTPSenderAddress   string        `mapstructure:"SMTP_SENDER_ADDRESS"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set defaults for non-sensitive config
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("HTTP_SERVER_ADDRESS", "0.0.0.0:8080")
	viper.SetDefault("ACCESS_TOKEN_DURATION", "24h")
	viper.SetDefault("WEBHOOK_TIMEOUT", "10s")
	viper.SetDefault("DEDUP_WINDOW", "5m")
	viper.SetDefault("DEDUP_BACKEND", "redis")
	viper.SetDefault("RECONCILE_INTERVAL", "15m")
	viper.SetDefault("MAIL_NUDGE_WINDOW", "1h")
	viper.SetDefault("SMTP_PORT", 587)

	// Prefer environment variables over config file
	viper.AutomaticEnv()

	// Load config file
	viper.SetConfigFile(path)
	if err = viper.ReadInConfig(); err != nil {
		return
	}

	// Unmarshal config into struct
	err = viper.UnmarshalExact(&config)
	if err != nil {
		return
	}

	// Validate required configuration
	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	if config.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if config.TokenSecretKey == "" {
		return fmt.Errorf("TOKEN_SECRET_KEY is required")
	}
	if config.RedisServerAddress == "" {
		return fmt.Errorf("REDIS_SERVER_ADDRESS is required")
	}
	if config.WebhookEndpoint == "" {
		return fmt.Errorf("WEBHOOK_ENDPOINT is required")
	}
	if config.DedupWindow <= 0 {
		return fmt.Errorf("DEDUP_WINDOW must be positive")
	}
	if config.DedupBackend != "redis" && config.DedupBackend != "memory" {
		return fmt.Errorf("DEDUP_BACKEND must be either redis or memory")
	}

	// SMTP is optional, but if a host is set, the sender address must be set too.
	if config.SMTPHost != "" && config.SMTPSenderAddress == "" {
		return fmt.Errorf("SMTP_SENDER_ADDRESS is required when SMTP_HOST is set")
	}

	return nil
}
