// Package config loads process configuration from the environment and an
// optional app.env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"concorda/agreement"
)

// HTTPConfig is the listener and CORS setup.
type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DBConfig points at the PostgreSQL database.
type DBConfig struct {
	URL      string
	MaxConns int32
}

// AuthConfig holds the token signing secret.
type AuthConfig struct {
	JWTSecret string
}

// SuggestConfig configures the Gemini suggestion client.
type SuggestConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AgreementConfig tunes the agreement lifecycle.
type AgreementConfig struct {
	ClosurePolicy agreement.ClosurePolicy
}

// Config is the whole process configuration.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Suggest     SuggestConfig
	Agreement   AgreementConfig
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// Load reads configuration. Environment variables win over app.env.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("SUGGEST_TIMEOUT", "15s")
	v.SetDefault("CLOSURE_SIGNATURE_POLICY", "any")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	policy, err := agreement.ParseClosurePolicy(v.GetString("CLOSURE_SIGNATURE_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("CLOSURE_SIGNATURE_POLICY: %w", err)
	}

	cfg := &Config{
		Environment: strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Suggest: SuggestConfig{
			APIKey:  v.GetString("GEMINI_API_KEY"),
			Model:   v.GetString("GEMINI_MODEL"),
			Timeout: v.GetDuration("SUGGEST_TIMEOUT"),
		},
		Agreement: AgreementConfig{
			ClosurePolicy: policy,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", cfg.HTTP.Port)
	}
	if cfg.DB.MaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.Suggest.Timeout <= 0 {
		return fmt.Errorf("SUGGEST_TIMEOUT must be positive")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
