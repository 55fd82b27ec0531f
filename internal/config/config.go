package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway, CLI and dev server.
type Config struct {
	App        AppConfig
	Gateway    GatewayConfig
	Credential CredentialConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	DevServer  DevServerConfig
}

// AppConfig identifies the running binary.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// GatewayConfig controls outbound requests.
type GatewayConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
	MaxResponseBytes      int64
	UserAgent             string
}

// CredentialConfig selects where the durable credential scope lives.
type CredentialConfig struct {
	Backend  string
	Key      string
	FilePath string
	TTLHours int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
	Output   string
}

// DevServerConfig configures the local reference backend.
type DevServerConfig struct {
	Host           string
	Port           string
	JWTSecret      string
	TokenTTLMinute int
	AdminEmail     string
	AdminPassword  string
	BcryptCost     int
	DisableBulk    []string
	ExportDataOnly []string
	FlatErrors     []string
}

// Credential backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxBytes, err := strconv.ParseInt(getEnv("GATEWAY_MAX_RESPONSE_BYTES", "52428800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_MAX_RESPONSE_BYTES: %w", err)
	}

	backend := strings.ToLower(getEnv("CREDENTIAL_BACKEND", BackendFile))
	switch backend {
	case BackendFile, BackendRedis, BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid CREDENTIAL_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "asset-gateway"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Gateway: GatewayConfig{
			BaseURL:               getEnv("GATEWAY_BASE_URL", "http://127.0.0.1:8080/v1"),
			RequestTimeoutSeconds: getEnvAsInt("GATEWAY_REQUEST_TIMEOUT_SECONDS", 0),
			MaxResponseBytes:      maxBytes,
			UserAgent:             getEnv("GATEWAY_USER_AGENT", "assetctl"),
		},
		Credential: CredentialConfig{
			Backend:  backend,
			Key:      getEnv("CREDENTIAL_KEY", "authToken"),
			FilePath: getEnv("CREDENTIAL_FILE", defaultCredentialFile()),
			TTLHours: getEnvAsInt("CREDENTIAL_TTL_HOURS", 0),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
		},
		DevServer: DevServerConfig{
			Host:           getEnv("DEVSERVER_HOST", "127.0.0.1"),
			Port:           getEnv("DEVSERVER_PORT", "8080"),
			JWTSecret:      getEnv("DEVSERVER_JWT_SECRET", "dev-secret"),
			TokenTTLMinute: getEnvAsInt("DEVSERVER_TOKEN_TTL_MINUTES", 60),
			AdminEmail:     getEnv("DEVSERVER_ADMIN_EMAIL", "admin@example.com"),
			AdminPassword:  getEnv("DEVSERVER_ADMIN_PASSWORD", "admin"),
			BcryptCost:     getEnvAsInt("DEVSERVER_BCRYPT_COST", 10),
			DisableBulk:    getEnvAsList("DEVSERVER_DISABLE_BULK"),
			ExportDataOnly: getEnvAsList("DEVSERVER_EXPORT_DATA_ONLY"),
			FlatErrors:     getEnvAsList("DEVSERVER_FLAT_ERRORS"),
		},
	}

	if cfg.Credential.Backend == BackendPostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("CREDENTIAL_BACKEND=postgres requires POSTGRES_DSN")
	}

	return cfg, nil
}

// RequestTimeout returns the configured request timeout, zero meaning none.
func (g GatewayConfig) RequestTimeout() time.Duration {
	if g.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// TTL returns how long a durable credential is kept, zero meaning forever.
func (c CredentialConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 0
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// Addr returns the dev server bind address.
func (d DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

func defaultCredentialFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "assetctl", "credential")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
