package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "github.com/onokeee/mindmap/domain/config"
	"github.com/onokeee/mindmap/domain/history"
)

// Storage drivers accepted in STORAGE_DRIVER
const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
	StorageMySQL    = "mysql"
)

// Config holds all application configuration
type Config struct {
	// Server
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`
	LogLevel      string `yaml:"log_level"`
	EnableCORS    bool   `yaml:"enable_cors"`

	// Storage
	StorageDriver string        `yaml:"storage_driver"`
	AWSRegion     string        `yaml:"aws_region"`
	TableName     string        `yaml:"table_name"`
	EventBusName  string        `yaml:"event_bus_name"`
	MySQLDSN      string        `yaml:"mysql_dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	// Auth
	JWTSecret     string        `yaml:"jwt_secret"`
	JWTIssuer     string        `yaml:"jwt_issuer"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminUsername string        `yaml:"admin_username"`
	AdminPassword string        `yaml:"admin_password"`

	// Editing
	History            HistoryConfig `yaml:"history"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	// Observability
	EnableMetrics bool    `yaml:"enable_metrics"`
	EnableTracing bool    `yaml:"enable_tracing"`
	OTLPEndpoint  string  `yaml:"otlp_endpoint"`
	TraceSampling float64 `yaml:"trace_sampling"`

	// ConfigFile is the YAML file the configuration was overlaid from, if any.
	ConfigFile string `yaml:"-"`
}

// HistoryConfig is the reloadable part of the configuration
type HistoryConfig struct {
	Capacity                    int  `yaml:"capacity"`
	CursorTracksAppendedOnEvict bool `yaml:"cursor_tracks_appended_on_evict"`
}

// StoreConfig converts the section into the history store's settings
func (h HistoryConfig) StoreConfig() history.StoreConfig {
	return history.StoreConfig{
		Capacity:                         h.Capacity,
		CursorTracksAppendedEntryOnEvict: h.CursorTracksAppendedOnEvict,
	}
}

// Validate checks the section on its own, so a reload can be rejected
func (h HistoryConfig) Validate() error {
	if h.Capacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", h.Capacity)
	}
	return nil
}

// Defaults returns the configuration used before any file or environment
// variable is applied.
func Defaults() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		LogLevel:      "info",
		EnableCORS:    true,

		StorageDriver: StorageMemory,
		AWSRegion:     "us-east-1",
		TableName:     "mindmaps",
		EventBusName:  "",
		CacheTTL:      5 * time.Minute,

		JWTIssuer:     "mindmap",
		TokenTTL:      24 * time.Hour,
		AdminUsername: "admin",

		History: HistoryConfig{
			Capacity:                    history.DefaultCapacity,
			CursorTracksAppendedOnEvict: true,
		},
		SessionIdleTimeout: 30 * time.Minute,

		EnableMetrics: true,
		EnableTracing: false,
		OTLPEndpoint:  "localhost:4317",
		TraceSampling: 1.0,
	}
}

// LoadConfig loads configuration from defaults, the optional CONFIG_FILE and
// environment variables, in increasing order of priority.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)

	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.TableName = getEnv("TABLE_NAME", cfg.TableName)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)
	cfg.MySQLDSN = getEnv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = time.Duration(getEnvInt("CACHE_TTL_SECONDS", int(cfg.CacheTTL/time.Second))) * time.Second

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	cfg.History.Capacity = getEnvInt("HISTORY_CAPACITY", cfg.History.Capacity)
	cfg.History.CursorTracksAppendedOnEvict = getEnvBool("HISTORY_CURSOR_TRACKS_APPENDED_ON_EVICT", cfg.History.CursorTracksAppendedOnEvict)
	cfg.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)

	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.TraceSampling = getEnvFloat("TRACE_SAMPLING", cfg.TraceSampling)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.TraceSampling < 0 || c.TraceSampling > 1 {
		return fmt.Errorf("TRACE_SAMPLING must be between 0 and 1, got %v", c.TraceSampling)
	}

	switch c.StorageDriver {
	case StorageMemory:
	case StorageDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb driver")
		}
	case StorageMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD is required in production")
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DomainConfig returns the business rules for the environment with the
// history settings taken from this configuration.
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	dc := domainconfig.LoadDomainConfig(c.Environment)
	dc.HistoryCapacity = c.History.Capacity
	dc.CursorTracksAppendedEntryOnEvict = c.History.CursorTracksAppendedOnEvict
	return dc
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
