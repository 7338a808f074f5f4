// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	AWS          AWSConfig          `mapstructure:"aws"`
	Feeds        FeedsConfig        `mapstructure:"feeds"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Email        EmailConfig        `mapstructure:"email"`
	Storage      StorageConfig      `mapstructure:"storage"`
	AssetInventory AssetInventoryConfig `mapstructure:"asset_inventory"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Scheduling   SchedulingConfig   `mapstructure:"scheduling"`
	AI           AIConfig           `mapstructure:"ai"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name                     string `mapstructure:"name"`
	Version                  string `mapstructure:"version"`
	Environment              string `mapstructure:"environment"`
	Debug                    bool   `mapstructure:"debug"`
	LogLevel                 string `mapstructure:"log_level"`
	LogFormat                string `mapstructure:"log_format"`
	CredentialStoreMasterKey string `mapstructure:"credential_store_master_key"`
	// Timezone is the operator timezone used to evaluate digest send-times
	// and the default weekly report window. Bound directly to the bare TZ
	// environment variable rather than the AETIM_-prefixed form every other
	// setting uses.
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnablePprof       bool          `mapstructure:"enable_pprof"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	ReadReplicaDSNs    []string      `mapstructure:"read_replica_dsns"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	Database        int           `mapstructure:"database"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	EnableCluster   bool          `mapstructure:"enable_cluster"`
	ClusterNodes    []string      `mapstructure:"cluster_nodes"`
}

// AuthConfig contains the settings for validating tokens issued by the
// upstream OIDC exchange. AETIM never performs the login/consent flow or
// issues its own tokens; it only verifies what arrives on each request,
// per shared.Principal's doc comment.
type AuthConfig struct {
	OIDCIssuerURL  string        `mapstructure:"oidc_issuer_url"`
	OIDCAudience   string        `mapstructure:"oidc_audience"`
	JWKSCacheTTL   time.Duration `mapstructure:"jwks_cache_ttl"`
	RoleClaim      string        `mapstructure:"role_claim"`
	ClockSkew      time.Duration `mapstructure:"clock_skew"`
}

// AWSConfig contains AWS credentials and S3 artefact storage settings.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Endpoint        string `mapstructure:"endpoint"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3KeyPrefix     string `mapstructure:"s3_key_prefix"`
	CloudFrontURL   string `mapstructure:"cloudfront_url"`
}

// FeedCredential configures one collector's endpoint and authentication.
type FeedCredential struct {
	Name       string        `mapstructure:"name"`
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	PollPeriod time.Duration `mapstructure:"poll_period"`
}

// FeedsConfig contains default collector cadence and per-feed overrides.
type FeedsConfig struct {
	DefaultPollPeriod time.Duration    `mapstructure:"default_poll_period"`
	RequestTimeout    time.Duration    `mapstructure:"request_timeout"`
	Sources           []FeedCredential `mapstructure:"sources"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics     bool    `mapstructure:"enable_metrics"`
	MetricsPort       int     `mapstructure:"metrics_port"`
	EnableTracing     bool    `mapstructure:"enable_tracing"`
	OTLPTraceEndpoint string  `mapstructure:"otlp_trace_endpoint"`
	SamplingRate      float64 `mapstructure:"sampling_rate"`
	SentryDSN         string  `mapstructure:"sentry_dsn"`
	SentryEnvironment string  `mapstructure:"sentry_environment"`
	HealthCheckPath   string  `mapstructure:"health_check_path"`
	ReadinessPath     string  `mapstructure:"readiness_path"`
}

// EmailConfig contains the SMTP settings for the mail collaborator that
// backs outbound.MailClient. This only configures the address of the
// mail relay the notification dispatcher hands rendered messages to;
// SMTP transport itself lives in the infrastructure mail adapter.
type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	EnableTLS    bool   `mapstructure:"enable_tls"`
}

// AIConfig configures the chat-completion collaborator behind
// outbound.SummarizerClient: extraction enrichment and CISO report
// paraphrase. When APIKey is empty, the client falls back to a local
// Ollama-compatible endpoint rather than refusing to start.
type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	LocalURL    string        `mapstructure:"local_url"`
	LocalModel  string        `mapstructure:"local_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// StorageConfig selects and configures the backend for rendered report
// and ticket artefacts (outbound.StorageService).
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // "local" or "s3"
	LocalPath string `mapstructure:"local_path"`
}

// AssetInventoryConfig points at the external asset-management system's
// read API that backs outbound.AssetRepository. AETIM never writes to
// this inventory, only reads and caches it.
type AssetInventoryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig contains HTTP-surface rate limiting configuration, as
// distinct from the per-feed collector rate limiter in
// internal/infrastructure/ratelimit.
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	UseRedis        bool          `mapstructure:"use_redis"`
}

// ScoringConfig tunes the risk-scoring formula's weights and the
// ticket/report thresholds derived from its output.
type ScoringConfig struct {
	CVSSWeight            float64 `mapstructure:"cvss_weight"`
	AssetSensitivityWeight float64 `mapstructure:"asset_sensitivity_weight"`
	TicketRiskThreshold   float64 `mapstructure:"ticket_risk_threshold"`
	CriticalRiskThreshold float64 `mapstructure:"critical_risk_threshold"`
}

// SchedulingConfig contains cron expressions for the recurring jobs:
// weekly CISO digests and the high-risk daily notification digest.
type SchedulingConfig struct {
	WeeklyReportCron  string `mapstructure:"weekly_report_cron"`
	DailyDigestCron   string `mapstructure:"daily_digest_cron"`
	MaxConcurrentJobs int    `mapstructure:"max_concurrent_jobs"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return unmarshalAndValidate(v)
}

// Watch installs a file watcher on the config file and invokes onChange
// with a freshly loaded Config every time the file is rewritten. A
// rewrite that fails to unmarshal or validate is dropped; the running
// configuration stays untouched. Structural settings (listen port,
// database DSN, DI-wired components) still require a restart to apply —
// onChange is for the caller to log the change and pick up whatever it
// can apply dynamically.
func Watch(configPath string, onChange func(*Config, fsnotify.Event)) error {
	v, err := newViper(configPath)
	if err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fresh, err := unmarshalAndValidate(v)
		if err != nil {
			return
		}
		onChange(fresh, e)
	})
	v.WatchConfig()
	return nil
}

// newViper builds a viper instance with defaults, env binding, and the
// config file (when one exists) already read.
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/aetim")
	}

	// Enable environment variable override
	v.SetEnvPrefix("AETIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// TZ is recognised bare (no AETIM_ prefix), matching the environment
	// variable operators already set for every other IANA-timezone-aware
	// tool on the host.
	_ = v.BindEnv("app.timezone", "TZ")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "aetim")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.credential_store_master_key", "development-only-insecure-key")
	v.SetDefault("app.timezone", "UTC")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.enable_compression", true)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.slow_query_threshold", "100ms")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	// Auth defaults
	v.SetDefault("auth.jwks_cache_ttl", "1h")
	v.SetDefault("auth.role_claim", "roles")
	v.SetDefault("auth.clock_skew", "2m")

	// Feed defaults
	v.SetDefault("feeds.default_poll_period", "15m")
	v.SetDefault("feeds.request_timeout", "30s")

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")

	// Storage defaults
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_path", "./data/artefacts")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_min", 60)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Scoring defaults
	v.SetDefault("scoring.cvss_weight", 0.6)
	v.SetDefault("scoring.asset_sensitivity_weight", 0.4)
	v.SetDefault("scoring.ticket_risk_threshold", 6.0)
	v.SetDefault("scoring.critical_risk_threshold", 8.0)

	// Scheduling defaults
	v.SetDefault("scheduling.weekly_report_cron", "0 9 * * MON")
	v.SetDefault("scheduling.daily_digest_cron", "0 7 * * *")
	v.SetDefault("scheduling.max_concurrent_jobs", 5)

	// AI defaults
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.local_url", "http://localhost:11434/v1")
	v.SetDefault("ai.local_model", "llama3.1")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_tokens", 1024)

	// Asset inventory defaults
	v.SetDefault("asset_inventory.base_url", "http://localhost:9090")
	v.SetDefault("asset_inventory.timeout", "10s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if c.Auth.OIDCIssuerURL == "" && c.App.Environment == "production" {
		return fmt.Errorf("auth.oidc_issuer_url is required in production")
	}

	if c.App.CredentialStoreMasterKey == "" && c.App.Environment == "production" {
		return fmt.Errorf("app.credential_store_master_key is required in production")
	}

	if c.Storage.Provider == "s3" && c.AWS.S3Bucket == "" {
		return fmt.Errorf("aws.s3_bucket is required when storage.provider is s3")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q is not a valid IANA timezone: %w", c.App.Timezone, err)
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
