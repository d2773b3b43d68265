package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Backend    BackendConfig
	Roster     RosterConfig
	Sessions   SessionConfig
	Submission SubmissionConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BackendConfig points the gateway at the SchoolSnap REST backend.
type BackendConfig struct {
	BaseURL      string
	AssetBaseURL string
	Timeout      time.Duration
	// DegradedMode substitutes placeholder data when the backend answers with
	// an HTML page, an auth challenge or an unknown payload.
	DegradedMode bool
}

// RosterConfig tunes roster paging and caching.
type RosterConfig struct {
	PageSize     int
	Concurrency  int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SessionConfig controls where attendance sessions live and for how long.
type SessionConfig struct {
	Store      string
	TTL        time.Duration
	WindowDays int
}

// SubmissionConfig toggles the submission audit trail.
type SubmissionConfig struct {
	AuditEnabled bool
	Workers      int
	Retries      int
}

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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Backend = BackendConfig{
		BaseURL:      strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		AssetBaseURL: strings.TrimRight(v.GetString("BACKEND_ASSET_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("BACKEND_TIMEOUT"), 15*time.Second),
		DegradedMode: v.GetBool("DEGRADED_MODE_ENABLED"),
	}

	cfg.Roster = RosterConfig{
		PageSize:     positiveOr(v.GetInt("ROSTER_PAGE_SIZE"), 10000),
		Concurrency:  positiveOr(v.GetInt("ROSTER_PAGE_CONCURRENCY"), 4),
		CacheEnabled: v.GetBool("ROSTER_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ROSTER_CACHE_TTL"), 5*time.Minute),
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE")))
	if store != SessionStoreRedis {
		store = SessionStoreMemory
	}
	cfg.Sessions = SessionConfig{
		Store:      store,
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 2*time.Hour),
		WindowDays: positiveOr(v.GetInt("ATTENDANCE_WINDOW_DAYS"), 30),
	}

	cfg.Submission = SubmissionConfig{
		AuditEnabled: v.GetBool("ENABLE_SUBMISSION_AUDIT"),
		Workers:      positiveOr(v.GetInt("AUDIT_WORKERS"), 1),
		Retries:      positiveOr(v.GetInt("AUDIT_RETRIES"), 3),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "schoolsnap_gateway")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("BACKEND_ASSET_BASE_URL", "")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("DEGRADED_MODE_ENABLED", true)

	v.SetDefault("ROSTER_PAGE_SIZE", 10000)
	v.SetDefault("ROSTER_PAGE_CONCURRENCY", 4)
	v.SetDefault("ROSTER_CACHE_ENABLED", false)
	v.SetDefault("ROSTER_CACHE_TTL", "5m")

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("ATTENDANCE_WINDOW_DAYS", 30)

	v.SetDefault("ENABLE_SUBMISSION_AUDIT", false)
	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
