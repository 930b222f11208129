package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	JWT          JWTConfig
	Tracing      TracingConfig
	Sentry       SentryConfig
	Orchestrator OrchestratorConfig
	Secrets      SecretsConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	Version      string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds the event bus connection settings
type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// TracingConfig controls the OpenTelemetry exporter
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

// SentryConfig holds error reporting settings
type SentryConfig struct {
	DSN string
}

// OrchestratorConfig tunes workflow processing and integration calls
type OrchestratorConfig struct {
	IntegrationMode    string // mock or http
	IntegrationBaseURL string
	CallTimeout        time.Duration
	MaxRetries         int
	InitialBackoff     time.Duration
	BatchDeadline      time.Duration
	StrictRuleVersion  bool
	ProcessOnSubmit    bool
	WorkerCount        int
	LockTTL            time.Duration

	// Circuit breaker tuning applied to every integration
	BreakerInterval         time.Duration
	BreakerOpenTimeout      time.Duration
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
}

// SecretsConfig points credentials at an external secret store. A *Ref
// field holds a reference like vault://secret::onboarding/db#password;
// credentials without one keep their plain environment value.
type SecretsConfig struct {
	Provider string // vault, aws, gcp or file; empty disables the store
	CacheTTL time.Duration

	DatabasePasswordRef string
	RedisPasswordRef    string
	JWTSecretRef        string
	SentryDSNRef        string

	VaultAddress   string
	VaultToken     string
	VaultNamespace string
	VaultMount     string

	AWSRegion          string
	AWSProfile         string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	GCPProjectID       string
	GCPCredentialsFile string

	FileBasePath string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			Version:      getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 90),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "onboarding"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "APPLICATIONS"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
		Orchestrator: OrchestratorConfig{
			IntegrationMode:    getEnv("INTEGRATION_MODE", "mock"),
			IntegrationBaseURL: getEnv("INTEGRATION_BASE_URL", ""),
			CallTimeout:        getEnvAsDuration("INTEGRATION_TIMEOUT", 30*time.Second),
			MaxRetries:         getEnvAsInt("INTEGRATION_MAX_RETRIES", 3),
			InitialBackoff:     getEnvAsDuration("INTEGRATION_BACKOFF", 200*time.Millisecond),
			BatchDeadline:      getEnvAsDuration("INTEGRATION_BATCH_DEADLINE", 60*time.Second),
			StrictRuleVersion:  getEnvAsBool("STRICT_RULE_VERSION", false),
			ProcessOnSubmit:    getEnvAsBool("PROCESS_ON_SUBMIT", true),
			WorkerCount:        getEnvAsInt("WORKER_COUNT", 4),
			LockTTL:            getEnvAsDuration("LOCK_TTL", 2*time.Minute),

			BreakerInterval:         getEnvAsDuration("INTEGRATION_BREAKER_INTERVAL", time.Minute),
			BreakerOpenTimeout:      getEnvAsDuration("INTEGRATION_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			BreakerFailureThreshold: getEnvAsInt("INTEGRATION_BREAKER_FAILURES", 5),
			BreakerSuccessThreshold: getEnvAsInt("INTEGRATION_BREAKER_SUCCESSES", 1),
		},
		Secrets: SecretsConfig{
			Provider:            getEnv("SECRETS_PROVIDER", ""),
			CacheTTL:            getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			DatabasePasswordRef: getEnv("DB_PASSWORD_REF", ""),
			RedisPasswordRef:    getEnv("REDIS_PASSWORD_REF", ""),
			JWTSecretRef:        getEnv("JWT_SECRET_REF", ""),
			SentryDSNRef:        getEnv("SENTRY_DSN_REF", ""),
			VaultAddress:        getEnv("VAULT_ADDR", ""),
			VaultToken:          getEnv("VAULT_TOKEN", ""),
			VaultNamespace:      getEnv("VAULT_NAMESPACE", ""),
			VaultMount:          getEnv("VAULT_MOUNT", "secret"),
			AWSRegion:           getEnv("AWS_REGION", ""),
			AWSProfile:          getEnv("AWS_PROFILE", ""),
			AWSEndpoint:         getEnv("AWS_SECRETS_ENDPOINT", ""),
			AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			GCPProjectID:        getEnv("GCP_PROJECT_ID", ""),
			GCPCredentialsFile:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			FileBasePath:        getEnv("SECRETS_FILE_PATH", "/var/run/secrets/onboarding"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Orchestrator.IntegrationMode {
	case "mock":
	case "http":
		if c.Orchestrator.IntegrationBaseURL == "" {
			return fmt.Errorf("INTEGRATION_BASE_URL is required when INTEGRATION_MODE=http")
		}
	default:
		return fmt.Errorf("unknown INTEGRATION_MODE %q", c.Orchestrator.IntegrationMode)
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("INTEGRATION_MAX_RETRIES must not be negative")
	}
	switch c.Secrets.Provider {
	case "", "vault", "aws", "gcp", "file":
	default:
		return fmt.Errorf("unknown SECRETS_PROVIDER %q", c.Secrets.Provider)
	}
	if c.Orchestrator.WorkerCount <= 0 {
		c.Orchestrator.WorkerCount = 1
	}
	return nil
}

// AllowedOrigins splits CORSOrigins into a slice
func (c *ServerConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as golang-migrate expects it
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
