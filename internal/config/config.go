package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Session  SessionConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

// RedisConfig selects the session store. An empty URL falls back to the
// in-process store, which is refused in production.
type RedisConfig struct {
	URL string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	BaseURL        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

type SessionConfig struct {
	Secret             string
	CookieName         string
	RememberCookieName string
	IdleTimeout        time.Duration
	RegenerateInterval time.Duration
	RememberMeTTL      time.Duration
	CookieSecure       bool
}

type AuthConfig struct {
	BcryptCost            int
	MaxLoginAttempts      int
	LockoutDuration       time.Duration
	ResetCodeTTL          time.Duration
	TimingBaseDelayMs     int
	TimingRandomDelayMs   int
	CleanupInterval       time.Duration
	RateLimitPerMinute    int
	ResetRateLimitPerHour int
}

type EmailConfig struct {
	Provider     string // "ses", "smtp" or "log"
	FromAddress  string
	FromName     string
	SupportEmail string
	AWSRegion    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "spendwise"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", env != "production"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
		},
		Session: SessionConfig{
			Secret:             sessionSecret,
			CookieName:         getEnv("SESSION_COOKIE_NAME", "spendwise_session"),
			RememberCookieName: getEnv("REMEMBER_COOKIE_NAME", "remember_token"),
			IdleTimeout:        getEnvAsDuration("SESSION_IDLE_TIMEOUT", 1*time.Hour),
			RegenerateInterval: getEnvAsDuration("SESSION_REGENERATE_INTERVAL", 30*time.Minute),
			RememberMeTTL:      getEnvAsDuration("REMEMBER_ME_TTL", 30*24*time.Hour),
			CookieSecure:       getEnvAsBool("COOKIE_SECURE", env == "production"),
		},
		Auth: AuthConfig{
			BcryptCost:            getEnvAsInt("BCRYPT_COST", 12),
			MaxLoginAttempts:      getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:       getEnvAsDuration("ACCOUNT_LOCKOUT_DURATION", 30*time.Minute),
			ResetCodeTTL:          getEnvAsDuration("RESET_CODE_TTL", 15*time.Minute),
			TimingBaseDelayMs:     getEnvAsInt("TIMING_BASE_DELAY_MS", 250),
			TimingRandomDelayMs:   getEnvAsInt("TIMING_RANDOM_DELAY_MS", 150),
			CleanupInterval:       getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			RateLimitPerMinute:    getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 10),
			ResetRateLimitPerHour: getEnvAsInt("RESET_RATE_LIMIT_PER_HOUR", 5),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "log"),
			FromAddress:  getEnv("EMAIL_FROM", "no-reply@spendwise.local"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Spendwise"),
			SupportEmail: getEnv("SUPPORT_EMAIL", "support@spendwise.local"),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 31 (got %d)", c.Auth.BcryptCost)
	}
	if c.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be positive")
	}

	switch c.Email.Provider {
	case "ses", "log":
	case "smtp":
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be one of ses, smtp, log (got %q)", c.Email.Provider)
	}

	if c.IsProduction() {
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required in production")
		}
		if c.Email.Provider == "log" {
			return fmt.Errorf("EMAIL_PROVIDER=log is not allowed in production")
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// validateSessionSecret enforces minimum security standards for the cookie signing key
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
