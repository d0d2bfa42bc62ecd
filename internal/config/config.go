// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override; .env is loaded first)
//  2. Config file (./config.yaml, then ~/.finchat/config.yaml)
//  3. Default values
//
// Categories:
//   - Server: listen address, CORS, proxy trust
//   - RateLimit: per-client request budget
//   - Database: PostgreSQL/pgvector connection URL
//   - OpenAI: API key, chat and embedding models
//   - Session: token secret, inactivity timeout, sweep interval
//   - Retrieval: default top-k
//   - FAQ: keyword index location
//   - Log / Tracing: output format, OTLP exporter
//
// Security: sensitive values (API key, session secret, database URL) are
// masked in MarshalJSON, so logging a Config never leaks credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPort indicates the server port is out of range.
	ErrInvalidPort = errors.New("invalid server port")

	// ErrInvalidModel indicates a model name is empty.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidTimeout indicates the session timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid session timeout")

	// ErrInvalidSweepInterval indicates the sweep interval is not positive.
	ErrInvalidSweepInterval = errors.New("invalid sweep interval")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidRateLimit indicates the rate limit values are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrWeakSessionSecret indicates a configured session secret is too short.
	ErrWeakSessionSecret = errors.New("session secret too short")
)

// MinSessionSecretLength is the minimum length for a configured session
// secret. Shorter secrets make HS256 tokens guessable.
const MinSessionSecretLength = 32

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address (default: 0.0.0.0)
	Host string `mapstructure:"host" json:"host"`
	// Port is the listen port (default: 8000)
	Port int `mapstructure:"port" json:"port"`
	// CORSOrigins are the allowed CORS origins
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	// TrustProxy trusts X-Real-IP/X-Forwarded-For (set true behind a reverse proxy)
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig holds per-client API rate limit settings.
type RateLimitConfig struct {
	// RPS is the sustained requests per second per client
	RPS float64 `mapstructure:"rps" json:"rps"`
	// Burst is the instantaneous burst budget per client
	Burst int `mapstructure:"burst" json:"burst"`
}

// DatabaseConfig holds the PostgreSQL connection settings. An empty URL
// leaves the vector tier unavailable; the service still serves answers
// through the keyword fallback.
type DatabaseConfig struct {
	// URL is a postgres:// connection string. SENSITIVE: masked in MarshalJSON.
	URL string `mapstructure:"url" json:"url"`
}

// MarshalJSON masks the connection URL, which embeds credentials.
func (d DatabaseConfig) MarshalJSON() ([]byte, error) {
	type alias DatabaseConfig
	a := alias(d)
	a.URL = maskSecret(a.URL)
	return json.Marshal(a)
}

// OpenAIConfig holds the completion/embedding provider settings.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI API. SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`
	// BaseURL optionally overrides the API endpoint (proxies, compatible servers)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// ChatModel is the completion model (default: gpt-3.5-turbo)
	ChatModel string `mapstructure:"chat_model" json:"chat_model"`
	// EmbeddingModel is the embedding model (default: text-embedding-ada-002)
	EmbeddingModel string `mapstructure:"embedding_model" json:"embedding_model"`
}

// MarshalJSON masks the API key.
func (o OpenAIConfig) MarshalJSON() ([]byte, error) {
	type alias OpenAIConfig
	a := alias(o)
	a.APIKey = maskSecret(a.APIKey)
	return json.Marshal(a)
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	// Secret signs session tokens. SENSITIVE: masked in MarshalJSON.
	// Empty: a random secret is generated at startup (tokens then do not
	// survive restarts).
	Secret string `mapstructure:"secret" json:"secret"`
	// Timeout is the inactivity window after which a session expires (default: 24h)
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// SweepInterval is the period of the background expiry sweep (default: 10m)
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval"`
}

// MarshalJSON masks the signing secret.
func (s SessionConfig) MarshalJSON() ([]byte, error) {
	type alias SessionConfig
	a := alias(s)
	a.Secret = maskSecret(a.Secret)
	return json.Marshal(a)
}

// RetrievalConfig holds context retrieval settings.
type RetrievalConfig struct {
	// TopK is the default number of knowledge snippets fetched per query (default: 5)
	TopK int `mapstructure:"top_k" json:"top_k"`
}

// FAQConfig holds the keyword fallback index settings.
type FAQConfig struct {
	// IndexPath locates the prebuilt keyword index file
	IndexPath string `mapstructure:"index_path" json:"index_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `mapstructure:"level" json:"level"`
	// JSON switches output to JSON format
	JSON bool `mapstructure:"json" json:"json"`
}

// SlogLevel maps the configured level name onto a slog.Level.
// Unknown names fall back to Info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TracingConfig holds the optional OTLP trace exporter settings.
type TracingConfig struct {
	// Enabled turns span export on (default: false)
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP HTTP collector endpoint (default: localhost:4318)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment tags exported spans (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName names the service in the tracing backend (default: finchat)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores the full application configuration.
// SECURITY: sensitive nested fields are masked by their own MarshalJSON.
// When adding a new secret, give its struct a masking MarshalJSON too.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" json:"ratelimit"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" json:"openai"`
	Session   SessionConfig   `mapstructure:"session" json:"session"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	FAQ       FAQConfig       `mapstructure:"faq" json:"faq"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".finchat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(configDir)

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{".", configDir})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("server.trust_proxy", false)

	viper.SetDefault("ratelimit.rps", 10)
	viper.SetDefault("ratelimit.burst", 20)

	viper.SetDefault("openai.chat_model", "gpt-3.5-turbo")
	viper.SetDefault("openai.embedding_model", "text-embedding-ada-002")

	viper.SetDefault("session.timeout", "24h")
	viper.SetDefault("session.sweep_interval", "10m")

	viper.SetDefault("retrieval.top_k", 5)

	viper.SetDefault("faq.index_path", filepath.Join("data", "faq_index.json"))

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "finchat")
}

// bindEnvVariables binds environment variables explicitly. Canonical names
// (OPENAI_API_KEY, DATABASE_URL, ...) match what the deployment provides;
// FINCHAT_* names cover the rest.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai.api_key", "OPENAI_API_KEY")
	mustBind("openai.base_url", "OPENAI_BASE_URL")
	mustBind("database.url", "DATABASE_URL")
	mustBind("session.secret", "SESSION_SECRET")

	mustBind("server.host", "HOST")
	mustBind("server.port", "PORT")
	mustBind("server.cors_origins", "FINCHAT_CORS_ORIGINS")
	mustBind("server.trust_proxy", "FINCHAT_TRUST_PROXY")

	mustBind("faq.index_path", "FINCHAT_FAQ_INDEX")
	mustBind("log.level", "FINCHAT_LOG_LEVEL")
	mustBind("tracing.enabled", "FINCHAT_TRACING_ENABLED")
	mustBind("tracing.endpoint", "FINCHAT_TRACING_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 characters or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility. This defends against accidental logging, nothing more:
// if logs leak, rotate the secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// String implements Stringer so printing a Config never exposes secrets.
func (c Config) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
