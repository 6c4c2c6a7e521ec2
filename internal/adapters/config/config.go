package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"marketintel/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Search        SearchConfig
	News          NewsConfig
	AI            AIConfig
	Reports       ReportsConfig
	Cache         CacheConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"marketintel"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"marketintel"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Configured reports whether a Postgres connection was provided. Without one
// the application keeps run history in memory only.
func (c PostgresConfig) Configured() bool {
	return c.Host != "" && c.User != ""
}

type SearchConfig struct {
	APIKey     string        `envconfig:"FIRECRAWL_API_KEY"`
	BaseURL    string        `envconfig:"FIRECRAWL_BASE_URL" default:"https://api.firecrawl.dev/v0"`
	Timeout    time.Duration `envconfig:"SEARCH_TIMEOUT" default:"30s"`
	MaxResults int           `envconfig:"SEARCH_MAX_RESULTS" default:"8"`
	RatePerMin float64       `envconfig:"SEARCH_RATE_PER_MIN" default:"30"`
}

type NewsConfig struct {
	APIKey   string        `envconfig:"NEWSDATA_API_KEY"`
	BaseURL  string        `envconfig:"NEWSDATA_BASE_URL" default:"https://newsdata.io/api/1"`
	Timeout  time.Duration `envconfig:"NEWS_TIMEOUT" default:"20s"`
	Language string        `envconfig:"NEWS_LANGUAGE" default:"en"`
}

// Configured reports whether the news source can be used. Absence is a valid
// state: the reader stage degrades to web-only collection.
func (c NewsConfig) Configured() bool {
	return c.APIKey != ""
}

type AIConfig struct {
	APIKey      string        `envconfig:"OPENAI_API_KEY"`
	Model       string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"4096"`
	Temperature float64       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	RatePerMin  float64       `envconfig:"LLM_RATE_PER_MIN" default:"60"`
}

type ReportsConfig struct {
	Dir string `envconfig:"REPORTS_DIR" default:"reports"`
}

type CacheConfig struct {
	SearchCacheSize int           `envconfig:"SEARCH_CACHE_SIZE" default:"100"`
	SearchCacheTTL  time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"1h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
