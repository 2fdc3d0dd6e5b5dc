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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Cron     CronConfig
	Mail     MailConfig
	Billing  BillingConfig
	Jobs     JobsConfig
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
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GatewayConfig configures the hosted-checkout payment gateway client.
type GatewayConfig struct {
	BaseURL   string
	ServerKey string
	ProjectID string
	Timeout   time.Duration
}

// CronConfig authenticates the externally-triggered batch endpoints.
type CronConfig struct {
	Secret string
}

// MailConfig configures outbound transactional email.
type MailConfig struct {
	Enabled     bool
	SendgridKey string
	FromName    string
	FromEmail   string
}

// BillingConfig tunes the enrollment/payment lifecycle windows.
type BillingConfig struct {
	CheckoutTTL       time.Duration
	RenewalLead       time.Duration
	ReminderDedup     time.Duration
	MeetingReminderLo time.Duration
	MeetingReminderHi time.Duration
}

// JobsConfig tunes the in-process notification dispatch queue.
type JobsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Gateway = GatewayConfig{
		BaseURL:   v.GetString("GATEWAY_BASE_URL"),
		ServerKey: v.GetString("GATEWAY_SERVER_KEY"),
		ProjectID: v.GetString("GATEWAY_PROJECT_ID"),
		Timeout:   parseDuration(v.GetString("GATEWAY_TIMEOUT"), 15*time.Second),
	}

	cfg.Cron = CronConfig{
		Secret: v.GetString("CRON_SECRET"),
	}

	cfg.Mail = MailConfig{
		Enabled:     v.GetBool("MAIL_ENABLED"),
		SendgridKey: v.GetString("SENDGRID_API_KEY"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
		FromEmail:   v.GetString("MAIL_FROM_EMAIL"),
	}

	cfg.Billing = BillingConfig{
		CheckoutTTL:       parseDuration(v.GetString("CHECKOUT_TTL"), 24*time.Hour),
		RenewalLead:       parseDuration(v.GetString("RENEWAL_LEAD"), 72*time.Hour),
		ReminderDedup:     parseDuration(v.GetString("RENEWAL_REMINDER_DEDUP"), 7*24*time.Hour),
		MeetingReminderLo: parseDuration(v.GetString("MEETING_REMINDER_MIN"), 30*time.Minute),
		MeetingReminderHi: parseDuration(v.GetString("MEETING_REMINDER_MAX"), 60*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "bimbel")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "bimbel-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GATEWAY_BASE_URL", "https://sandbox.gateway.example.com")
	v.SetDefault("GATEWAY_SERVER_KEY", "dev_gateway_key")
	v.SetDefault("GATEWAY_PROJECT_ID", "bimbel")
	v.SetDefault("GATEWAY_TIMEOUT", "15s")

	v.SetDefault("CRON_SECRET", "")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Bimbel")
	v.SetDefault("MAIL_FROM_EMAIL", "noreply@bimbel.example.com")

	v.SetDefault("CHECKOUT_TTL", "24h")
	v.SetDefault("RENEWAL_LEAD", "72h")
	v.SetDefault("RENEWAL_REMINDER_DEDUP", "168h")
	v.SetDefault("MEETING_REMINDER_MIN", "30m")
	v.SetDefault("MEETING_REMINDER_MAX", "60m")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 32)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
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
