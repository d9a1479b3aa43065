package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/lib/pq"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"8000"`
	GinMode string `envconfig:"GIN_MODE" default:"debug"`
	Debug   bool   `envconfig:"DEBUG"`

	// DatabaseURL wins over the discrete DB_* settings when set.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"forum"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret      string        `envconfig:"JWT_SECRET"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"720h"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	ContentProvider string `envconfig:"CONTENT_PROVIDER" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	AWSRegion          string `envconfig:"AWS_REGION"`
	AWSBucket          string `envconfig:"AWS_BUCKET"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`

	VoteMaxAttempts int `envconfig:"VOTE_MAX_ATTEMPTS" default:"3"`
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

// Load reads .env (outside release mode) and then the process environment.
func Load() (*Config, error) {
	if os.Getenv("GIN_MODE") != "release" {
		// a missing .env is fine, the environment may already be populated
		_ = godotenv.Load()
	}

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.VoteMaxAttempts < 1 {
		return fmt.Errorf("VOTE_MAX_ATTEMPTS must be positive, got %d", c.VoteMaxAttempts)
	}
	return nil
}

// DSN returns a key/value postgres connection string.
func (c *Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		dsn, err := pq.ParseURL(c.DatabaseURL)
		if err != nil {
			return "", fmt.Errorf("parse DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	), nil
}

// UploadsEnabled reports whether S3 credentials are present.
func (c *Config) UploadsEnabled() bool {
	return c.AWSRegion != "" && c.AWSBucket != "" && c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
