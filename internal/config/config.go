// Package config loads server configuration from flags, environment
// variables and an optional config file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server needs to run.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database file.
	DBPath string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// TokenTTL is how long session tokens stay valid.
	TokenTTL time.Duration

	// OpenAIKey enables receipt OCR and transcript parsing. When empty those
	// endpoints return errors but the rest of the server works.
	OpenAIKey   string
	OpenAIModel string

	// SMTP settings. When Host is empty, bills are logged instead of sent.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// LogLevel is debug, info, warn or error.
	LogLevel string
}

// Load reads configuration with viper. Environment variables use the
// SMARTBILL_ prefix (SMARTBILL_JWT_SECRET and so on); cfgFile is an optional
// YAML config file.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "./data/smartbill.db")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("openai_model", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from", "bills@smartbill.local")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("SMARTBILL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Addr:         v.GetString("addr"),
		DBPath:       v.GetString("db_path"),
		JWTSecret:    v.GetString("jwt_secret"),
		TokenTTL:     v.GetDuration("token_ttl"),
		OpenAIKey:    v.GetString("openai_key"),
		OpenAIModel:  v.GetString("openai_model"),
		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		SMTPFrom:     v.GetString("smtp_from"),
		LogLevel:     v.GetString("log_level"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (set SMARTBILL_JWT_SECRET)")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token_ttl must be positive")
	}

	return cfg, nil
}
