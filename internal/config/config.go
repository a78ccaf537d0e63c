package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database      DatabaseConfig
	Server        ServerConfig
	QR            QRConfig
	Storage       StorageConfig
	Email         EmailConfig
	Observability ObservabilityConfig
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
	// Applied per connection; a blocked store call fails instead of hanging
	StatementTimeout time.Duration
	RunMigrations    bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type QRConfig struct {
	// FrontendURL is the base the page-specific QR link is built on
	FrontendURL     string
	TTL             time.Duration
	CleanupInterval time.Duration
	DraftTTL        time.Duration
	ImageSize       int
	// Requests per minute per IP for generate and validate
	RateLimitPerMinute int
}

type StorageConfig struct {
	S3Region           string
	S3Bucket           string
	S3AccessKey        string
	S3SecretKey        string
	S3Endpoint         string
	PresignExpiry      time.Duration
	MaxUploadSizeBytes int64
}

// Enabled reports whether blob storage is configured
func (c StorageConfig) Enabled() bool {
	return c.S3Bucket != ""
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

// Enabled reports whether QR links can be delivered by email
func (c EmailConfig) Enabled() bool {
	return c.FromAddress != ""
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	SentryDSN      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "5001"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		QR: QRConfig{
			FrontendURL:        strings.TrimSuffix(getEnv("FRONTEND_URL", ""), "/"),
			TTL:                getEnvAsDuration("QR_CODE_TTL", 5*time.Minute),
			CleanupInterval:    getEnvAsDuration("QR_CLEANUP_INTERVAL", 1*time.Hour),
			DraftTTL:           getEnvAsDuration("DRAFT_TTL", 24*time.Hour),
			ImageSize:          getEnvAsInt("QR_IMAGE_SIZE", 256),
			RateLimitPerMinute: getEnvAsInt("QR_RATE_LIMIT_PER_MINUTE", 30),
		},
		Storage: StorageConfig{
			S3Region:           getEnv("S3_REGION", "us-east-1"),
			S3Bucket:           getEnv("S3_BUCKET", ""),
			S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
			S3Endpoint:         getEnv("S3_ENDPOINT", ""),
			PresignExpiry:      getEnvAsDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
			MaxUploadSizeBytes: int64(getEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 5<<20)),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			SentryDSN:      getEnv("SENTRY_DSN", ""),
		},
	}

	if err := validateDatabaseConfig(&cfg.Database); err != nil {
		return nil, err
	}

	if err := validateQRConfig(&cfg.QR); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not serve traffic
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if err := validateDatabaseConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "visaqr"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		StatementTimeout:  getEnvAsDuration("DB_STATEMENT_TIMEOUT", 10*time.Second),
		RunMigrations:     getEnvAsBool("DB_RUN_MIGRATIONS", true),
	}
}

func validateDatabaseConfig(c *DatabaseConfig) error {
	if c.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	return nil
}

// validateQRConfig rejects settings that would make tokens unusable or unbounded
func validateQRConfig(c *QRConfig) error {
	if c.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required")
	}

	u, err := url.Parse(c.FrontendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FRONTEND_URL must be an absolute URL (got %q)", c.FrontendURL)
	}

	if c.TTL < 30*time.Second || c.TTL > 24*time.Hour {
		return fmt.Errorf("QR_CODE_TTL must be between 30s and 24h (got %s)", c.TTL)
	}

	if c.CleanupInterval < time.Minute {
		return fmt.Errorf("QR_CLEANUP_INTERVAL must be at least 1m (got %s)", c.CleanupInterval)
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("QR_RATE_LIMIT_PER_MINUTE must be positive")
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

func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		// Default to no origins in production
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		return parseList(origins)
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
