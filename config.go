package taskapp

import (
	"os"
	"strconv"
)

// EnvConfig is the environment-backed Config implementation used by
// the server binary. Tests use literal SimpleConfig values instead.
type EnvConfig struct {
	SigningKey      string
	TokenExpiration int
	Issuer          string
	AuthScheme      string
	ContextKey      string
	Port            string
	DatabaseDSN     string
	SendGridAPIKey  string
	MailFromAddress string
	MailFromName    string
}

// NewConfigFromEnv builds an EnvConfig from the process environment.
// Call godotenv.Load beforehand if a .env file should participate.
func NewConfigFromEnv() *EnvConfig {
	cfg := &EnvConfig{
		SigningKey:      os.Getenv("JWT_SECRET"),
		TokenExpiration: DefaultTokenExpiration,
		Issuer:          envOr("JWT_ISSUER", "task-app"),
		AuthScheme:      "Bearer",
		ContextKey:      "user",
		Port:            envOr("PORT", "3000"),
		DatabaseDSN:     envOr("DATABASE_URL", "file:task-app.db?cache=shared&mode=rwc"),
		SendGridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		MailFromAddress: envOr("MAIL_FROM_ADDRESS", "mail@task-app.dev"),
		MailFromName:    envOr("MAIL_FROM_NAME", "Task App"),
	}

	if hours := os.Getenv("JWT_TOKEN_EXPIRATION"); hours != "" {
		if parsed, err := strconv.Atoi(hours); err == nil && parsed > 0 {
			cfg.TokenExpiration = parsed
		}
	}

	return cfg
}

func (c *EnvConfig) GetSigningKey() string   { return c.SigningKey }
func (c *EnvConfig) GetTokenExpiration() int { return c.TokenExpiration }
func (c *EnvConfig) GetIssuer() string       { return c.Issuer }
func (c *EnvConfig) GetAuthScheme() string   { return c.AuthScheme }
func (c *EnvConfig) GetContextKey() string   { return c.ContextKey }

// SimpleConfig is a literal Config for wiring and tests.
type SimpleConfig struct {
	SigningKey      string
	TokenExpiration int
	Issuer          string
	AuthScheme      string
	ContextKey      string
}

func (c SimpleConfig) GetSigningKey() string   { return c.SigningKey }
func (c SimpleConfig) GetTokenExpiration() int { return c.TokenExpiration }
func (c SimpleConfig) GetIssuer() string       { return c.Issuer }
func (c SimpleConfig) GetAuthScheme() string   { return c.AuthScheme }
func (c SimpleConfig) GetContextKey() string   { return c.ContextKey }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
