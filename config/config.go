package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// HTTP server
	Server ServerConfig

	// Redis (the KV ledger)
	Redis RedisConfig

	// Database (optional session archive)
	Database DatabaseConfig

	// Notification delivery
	Notification NotificationConfig

	// Reminder dispatch
	Reminder ReminderConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RateLimitPerMinute int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// KeyNamespace prefixes stats keys so one Redis can host several
	// deployments.
	KeyNamespace string
}

// DatabaseConfig holds PostgreSQL settings for the session archive.
// An empty URL disables the archive and the history endpoint.
type DatabaseConfig struct {
	URL string

	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// Enabled reports whether the archive is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// NotificationConfig holds delivery settings.
type NotificationConfig struct {
	// TargetURL is the app URL a tapped notification opens.
	TargetURL string

	RequestTimeout time.Duration

	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
}

// ReminderConfig holds dispatch trigger settings.
type ReminderConfig struct {
	// CronSecret authorizes the HTTP dispatch trigger.
	CronSecret string

	// SchedulerEnabled runs the in-process daily scheduler as well.
	// Off by default; external cron is the canonical trigger.
	SchedulerEnabled bool

	// Hour and Minute are the daily in-process dispatch time (UTC).
	Hour   int
	Minute int

	// DispatchTimeout bounds one full dispatch run.
	DispatchTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:          loadAppConfig(),
		Server:       loadServerConfig(),
		Redis:        loadRedisConfig(),
		Database:     loadDatabaseConfig(),
		Notification: loadNotificationConfig(),
		Reminder:     loadReminderConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", "development"))

	return AppConfig{
		Name:            getEnv("APP_NAME", "stillmind-hub"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:               getEnv("HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:        getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:        getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 100),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		KeyNamespace: getEnv("REDIS_KEY_NAMESPACE", "stillmind"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 5)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 1)),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
}

func loadNotificationConfig() NotificationConfig {
	return NotificationConfig{
		TargetURL:               getEnv("NOTIFICATION_TARGET_URL", ""),
		RequestTimeout:          getEnvDuration("NOTIFICATION_REQUEST_TIMEOUT", 10*time.Second),
		BreakerFailureThreshold: getEnvInt("NOTIFICATION_BREAKER_THRESHOLD", 5),
		BreakerTimeout:          getEnvDuration("NOTIFICATION_BREAKER_TIMEOUT", 30*time.Second),
	}
}

func loadReminderConfig() ReminderConfig {
	return ReminderConfig{
		CronSecret:       getEnv("CRON_SECRET", ""),
		SchedulerEnabled: getEnvBool("REMINDER_SCHEDULER_ENABLED", false),
		Hour:             getEnvInt("REMINDER_HOUR", 9),
		Minute:           getEnvInt("REMINDER_MINUTE", 0),
		DispatchTimeout:  getEnvDuration("REMINDER_DISPATCH_TIMEOUT", 5*time.Minute),
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Environment == EnvProduction {
		if c.Reminder.CronSecret == "" {
			errs = append(errs, "CRON_SECRET is required in production")
		}
		if c.Notification.TargetURL == "" {
			errs = append(errs, "NOTIFICATION_TARGET_URL is required in production")
		}
	}

	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		errs = append(errs, "REMINDER_HOUR must be 0-23")
	}
	if c.Reminder.Minute < 0 || c.Reminder.Minute > 59 {
		errs = append(errs, "REMINDER_MINUTE must be 0-59")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
