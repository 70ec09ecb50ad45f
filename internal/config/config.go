package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EncryptionOff    = "off"
	EncryptionServer = "server"
	EncryptionClient = "client"
)

type Config struct {
	ServerPort string
	Env        string
	LogLevel   string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPass      string
	DBName      string
	SQLitePath  string

	RedisURL string
	RedisTTL time.Duration

	SessionSecret  string
	EncryptionKey  string
	EncryptionMode string

	BoardTTL          time.Duration
	SweepInterval     time.Duration
	SweepInitialDelay time.Duration
	EventTimeout      time.Duration

	FrontendURLs   []string
	MetricsEnabled bool
	SeedDemoBoard  bool

	MinioURL      string
	MinioUser     string
	MinioPassword string
	MinioBucket   string
	MinioRegion   string
}

func LoadConfig() Config {
	env := getEnv("ENV", "dev")
	encryptionKey := getEnv("ENCRYPTION_KEY", "")

	defaultMode := EncryptionOff
	if encryptionKey != "" {
		defaultMode = EncryptionServer
	}

	return Config{
		ServerPort:        getEnv("SERVER_PORT", "3000"),
		Env:               env,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "retro"),
		DBPass:            getEnv("DB_PASSWORD", "retro"),
		DBName:            getEnv("DB_NAME", "retro"),
		SQLitePath:        getEnv("SQLITE_PATH", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTTL:          getEnvAsDuration("REDIS_TTL", 5*time.Minute),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		EncryptionKey:     encryptionKey,
		EncryptionMode:    strings.ToLower(getEnv("ENCRYPTION_MODE", defaultMode)),
		BoardTTL:          getEnvAsDuration("BOARD_TTL", 24*time.Hour),
		SweepInterval:     getEnvAsDuration("SWEEP_INTERVAL", time.Hour),
		SweepInitialDelay: getEnvAsDuration("SWEEP_INITIAL_DELAY", 10*time.Second),
		EventTimeout:      getEnvAsDuration("EVENT_TIMEOUT", 5*time.Second),
		FrontendURLs:      getEnvAsList("FRONTEND_URL", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		MetricsEnabled:    getEnvAsBool("METRICS_ENABLED", true),
		SeedDemoBoard:     getEnvAsBool("SEED_DEMO_BOARD", env == "dev"),
		MinioURL:          getEnv("MINIO_URL", ""),
		MinioUser:         getEnv("MINIO_USER", "minioadmin"),
		MinioPassword:     getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioBucket:       getEnv("MINIO_BUCKET", "retro-archive"),
		MinioRegion:       getEnv("MINIO_REGION", ""),
	}
}

// Validate reports configuration combinations the server refuses to start with.
func (c *Config) Validate() error {
	switch c.EncryptionMode {
	case EncryptionOff, EncryptionClient:
	case EncryptionServer:
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_MODE=server requires ENCRYPTION_KEY")
		}
	default:
		return fmt.Errorf("unknown ENCRYPTION_MODE %q", c.EncryptionMode)
	}
	if c.EncryptionMode == EncryptionClient && c.EncryptionKey != "" {
		return fmt.Errorf("ENCRYPTION_MODE=client must not be combined with ENCRYPTION_KEY")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.BoardTTL <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("BOARD_TTL and SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
