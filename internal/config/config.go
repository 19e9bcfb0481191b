// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// MinSecretLen - минимальная длина секрета подписи сессий
const MinSecretLen = 32

// Config holds application configuration loaded from environment variables
type Config struct {
	OAuth               OAuthConfig   `envconfig:"OAUTH"`
	Addr                string        `envconfig:"ADDR" default:":3000"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabasePath        string        `envconfig:"DATABASE_PATH" default:"zenga.db"`
	RevocationsPath     string        `envconfig:"REVOCATIONS_PATH" default:"zenga-sessions.db"`
	SessionSecret       string        `envconfig:"JWT_SECRET"`
	OwnerOpenID         string        `envconfig:"OWNER_OPEN_ID"`
	Version             string        `envconfig:"VERSION" default:"dev"`
	SessionTTL          time.Duration `envconfig:"SESSION_TTL" default:"8760h"`
	ExternalAuthTimeout time.Duration `envconfig:"EXTERNAL_AUTH_TIMEOUT" default:"5s"`
	LoginRateWindow     time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	BcryptCost          int           `envconfig:"BCRYPT_COST" default:"10"`
	LoginRateLimit      int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	MetricsEnabled      bool          `envconfig:"METRICS_ENABLED" default:"true"`
	TrustProxyHeaders   bool          `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

// OAuthConfig describes the external identity provider (OAUTH_* variables)
type OAuthConfig struct {
	Provider     string   `envconfig:"PROVIDER" default:"oauth"`
	ClientID     string   `envconfig:"CLIENT_ID"`
	ClientSecret string   `envconfig:"CLIENT_SECRET"`
	RedirectURL  string   `envconfig:"REDIRECT_URL"`
	AuthURL      string   `envconfig:"AUTH_URL"`
	TokenURL     string   `envconfig:"TOKEN_URL"`
	UserInfoURL  string   `envconfig:"USERINFO_URL"`
	Scopes       []string `envconfig:"SCOPES"`
}

// Enabled reports whether enough settings are given to talk to the provider
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.AuthURL != "" && o.TokenURL != "" && o.UserInfoURL != ""
}

// Load reads an optional .env file and then the environment into a Config.
// Variables already present in the environment win over the file.
// envFile == "" skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return &cfg, nil
}

// ValidateServe checks the settings required to run the HTTP server
func (c *Config) ValidateServe() error {
	if len(c.SessionSecret) < MinSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", MinSecretLen)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.LoginRateLimit < 1 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be at least 1")
	}

	oauthSet := c.OAuth.ClientID != "" || c.OAuth.AuthURL != "" || c.OAuth.TokenURL != "" || c.OAuth.UserInfoURL != ""
	if oauthSet && !c.OAuth.Enabled() {
		return fmt.Errorf("OAUTH_CLIENT_ID, OAUTH_AUTH_URL, OAUTH_TOKEN_URL and OAUTH_USERINFO_URL must be set together")
	}

	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level name understood by slog.Level.UnmarshalText
func (c *Config) SlogLevel() string {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "warn", "error":
		return strings.ToUpper(c.LogLevel)
	}
	return "INFO"
}
