// Package config loads service configuration from an optional YAML file
// with environment variables taking precedence.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load merges configuration sources: built-in defaults, then the YAML file
// at path (skipped when empty or absent), then environment variables. A
// .env file in the working directory is read into the environment first.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.warnMissing()
	return cfg, nil
}

// warnMissing logs absent credentials at startup. Handlers still answer
// requests without them, failing the affected endpoint with a config
// error, so missing keys are not fatal here.
func (c *Config) warnMissing() {
	if c.Coinbase.APIKey == "" {
		slog.Warn("COINBASE_COMMERCE_API_KEY not set, charge creation will fail")
	}
	if c.Coinbase.WebhookSecret == "" {
		slog.Warn("COINBASE_WEBHOOK_SECRET not set, webhooks will be rejected")
	}
	if c.OpenAI.APIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, predictions will fail")
	}
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	setEnv(&cfg.Server.Addr, "ASTROCLOCK_ADDR")
	setEnv(&cfg.Coinbase.APIKey, "COINBASE_COMMERCE_API_KEY")
	setEnv(&cfg.Coinbase.WebhookSecret, "COINBASE_WEBHOOK_SECRET")
	setEnv(&cfg.Coinbase.ProductID, "PUBLIC_PRODUCT_ID")
	setEnv(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setEnv(&cfg.OpenAI.SystemPrompt, "OPENAI_SYSTEM_PROMPT_ASTROLOGY")
	setEnv(&cfg.Payments.DBPath, "ASTROCLOCK_DB")
	setEnv(&cfg.Astro.EphemerisScript, "EPHEMERIS_SCRIPT")
	setEnv(&cfg.Astro.PublicAPIURL, "PUBLIC_API_URL")

	if origins := os.Getenv("ASTROCLOCK_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.Server.AllowedOrigins = parts
	}
}

func setEnv(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}
