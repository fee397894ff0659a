package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	devJWTSecret        = "dev_secret"
	devAttachmentSecret = "dev_attachments_secret"
	defaultMaxUpload    = 5 << 20
)

// Config is the full process configuration, read from the environment and an optional .env file.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Attachments AttachmentsConfig
	Tracking    TrackingConfig
	Dashboard   DashboardConfig
	Idempotency IdempotencyConfig
	Timeline    TimelineConfig
	Audit       AuditConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	SingleSession     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttachmentsConfig controls where uploaded grievance documents live and how they are served.
type AttachmentsConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// TrackingConfig tunes the public tracking endpoint cache.
type TrackingConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type DashboardConfig struct {
	CacheTTL time.Duration
}

// IdempotencyConfig toggles Idempotency-Key handling on lifecycle writes.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// TimelineConfig holds the zone used to derive day-granular timeline dates.
type TimelineConfig struct {
	Timezone string
}

// AuditConfig sizes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// Load reads configuration. Environment variables win over .env, which wins over defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := &Config{
		Env:         strings.ToLower(v.GetString("ENV")),
		Port:        v.GetInt("PORT"),
		APIPrefix:   "/" + strings.Trim(v.GetString("API_PREFIX"), "/"),
		Database:    loadDatabase(v),
		Redis:       loadRedis(v),
		JWT:         loadJWT(v),
		CORS:        CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
		Log:         LogConfig{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")},
		Attachments: loadAttachments(v),
		Tracking: TrackingConfig{
			CacheEnabled: v.GetBool("TRACKING_CACHE_ENABLED"),
			CacheTTL:     durationOf(v, "TRACKING_CACHE_TTL", 2*time.Minute),
		},
		Dashboard: DashboardConfig{CacheTTL: durationOf(v, "DASHBOARD_CACHE_TTL", 5*time.Minute)},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("IDEMPOTENCY_ENABLED"),
			TTL:     durationOf(v, "IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Timeline: TimelineConfig{Timezone: v.GetString("TIMELINE_TIMEZONE")},
		Audit: AuditConfig{
			Workers:    v.GetInt("AUDIT_WORKERS"),
			MaxRetries: v.GetInt("AUDIT_MAX_RETRIES"),
			RetryDelay: durationOf(v, "AUDIT_RETRY_DELAY", time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that must never reach production.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.Env != EnvProduction {
		return nil
	}
	var problems []string
	if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
		problems = append(problems, "JWT_SECRET")
	}
	if c.Attachments.SignedURLSecret == "" || c.Attachments.SignedURLSecret == devAttachmentSecret {
		problems = append(problems, "ATTACHMENTS_SIGNED_URL_SECRET")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s must be set in production", strings.Join(problems, ", "))
	}
	return nil
}

// Location resolves the timeline zone, falling back to UTC when the name is unknown.
func (c TimelineConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}
}

func loadRedis(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}
}

func loadJWT(v *viper.Viper) JWTConfig {
	return JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        durationOf(v, "JWT_EXPIRATION", 24*time.Hour),
		RefreshExpiration: durationOf(v, "REFRESH_TOKEN_EXPIRATION", 7*24*time.Hour),
		SingleSession:     v.GetBool("JWT_SINGLE_SESSION"),
	}
}

func loadAttachments(v *viper.Viper) AttachmentsConfig {
	maxSize := v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE")
	if maxSize <= 0 {
		maxSize = defaultMaxUpload
	}
	return AttachmentsConfig{
		StorageDir:       v.GetString("ATTACHMENTS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     durationOf(v, "ATTACHMENTS_SIGNED_URL_TTL", 15*time.Minute),
		MaxFileSizeBytes: maxSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("ATTACHMENTS_ALLOWED_MIME_TYPES")),
	}
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"ENV":        EnvDevelopment,
		"PORT":       8080,
		"API_PREFIX": "/api/v1",

		"DB_HOST":           "localhost",
		"DB_PORT":           5432,
		"DB_USER":           "postgres",
		"DB_PASSWORD":       "postgres",
		"DB_NAME":           "dakpad",
		"DB_SSL_MODE":       "disable",
		"DB_MAX_OPEN_CONNS": 10,
		"DB_MAX_IDLE_CONNS": 5,

		"REDIS_HOST":     "localhost",
		"REDIS_PORT":     6379,
		"REDIS_PASSWORD": "",
		"REDIS_DB":       0,

		"JWT_SECRET":               devJWTSecret,
		"JWT_ISSUER":               "dakpad-api",
		"JWT_EXPIRATION":           "24h",
		"REFRESH_TOKEN_EXPIRATION": "168h",
		"JWT_SINGLE_SESSION":       false,

		"ALLOWED_ORIGINS": "",
		"LOG_LEVEL":       "info",
		"LOG_FORMAT":      "json",

		"ATTACHMENTS_STORAGE_DIR":        "./uploads",
		"ATTACHMENTS_SIGNED_URL_SECRET":  devAttachmentSecret,
		"ATTACHMENTS_SIGNED_URL_TTL":     "15m",
		"ATTACHMENTS_MAX_FILE_SIZE":      defaultMaxUpload,
		"ATTACHMENTS_ALLOWED_MIME_TYPES": "application/pdf,image/jpeg,image/png",

		"TRACKING_CACHE_ENABLED": true,
		"TRACKING_CACHE_TTL":     "2m",
		"DASHBOARD_CACHE_TTL":    "5m",
		"IDEMPOTENCY_ENABLED":    true,
		"IDEMPOTENCY_TTL":        "24h",
		"TIMELINE_TIMEZONE":      "Asia/Kolkata",

		"AUDIT_WORKERS":     2,
		"AUDIT_MAX_RETRIES": 3,
		"AUDIT_RETRY_DELAY": "1s",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func durationOf(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	return parseDuration(v.GetString(key), fallback)
}

// parseDuration returns fallback for empty, malformed or non-positive values.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
