package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Registry backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	BotToken string
	// AdminIDs is the privileged allow-list; the first one is the primary admin
	AdminIDs []int64
	LogLevel string

	Registry  RegistryConfig
	Database  DatabaseConfig
	Broadcast BroadcastConfig

	ConversationTTL time.Duration
	SendTimeout     time.Duration
	PollTimeout     time.Duration
	UserCooldown    time.Duration
	QRSize          int
}

// RegistryConfig selects where users are stored
type RegistryConfig struct {
	Backend        string
	File           string
	MigrationsPath string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// BroadcastConfig tunes the broadcast fan-out
type BroadcastConfig struct {
	Workers    int
	RatePerSec float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	adminIDs, err := ParseAdminIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken: os.Getenv("BOT_TOKEN"),
		AdminIDs: adminIDs,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Registry: RegistryConfig{
			Backend:        strings.ToLower(getEnv("REGISTRY_BACKEND", BackendFile)),
			File:           getEnv("REGISTRY_FILE", "user_stats.json"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "qrbot"),
			User:     getEnv("DB_USER", "qrbot"),
			Password: os.Getenv("DB_PASSWORD"),
		},
	}

	if cfg.ConversationTTL, err = getDuration("CONVERSATION_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = getDuration("SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = getDuration("POLL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.UserCooldown, err = getDuration("USER_COOLDOWN", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Broadcast.Workers, err = getInt("BROADCAST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.QRSize, err = getInt("QR_SIZE", 512); err != nil {
		return nil, err
	}
	if cfg.Broadcast.RatePerSec, err = getFloat("BROADCAST_RATE", 25); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS is required")
	}

	switch c.Registry.Backend {
	case BackendFile:
		if c.Registry.File == "" {
			return fmt.Errorf("REGISTRY_FILE must not be empty")
		}
	case BackendPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
		}
	default:
		return fmt.Errorf("REGISTRY_BACKEND must be %q or %q, got %q", BackendFile, BackendPostgres, c.Registry.Backend)
	}

	if c.Broadcast.Workers < 1 {
		return fmt.Errorf("BROADCAST_WORKERS must be positive")
	}
	if c.ConversationTTL <= 0 || c.SendTimeout <= 0 || c.PollTimeout <= 0 {
		return fmt.Errorf("CONVERSATION_TTL, SEND_TIMEOUT and POLL_TIMEOUT must be positive")
	}
	return nil
}

// PrimaryAdmin returns the admin that receives notifications
func (c *Config) PrimaryAdmin() int64 {
	return c.AdminIDs[0]
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// ParseAdminIDs parses a comma-separated list of Telegram user ids,
// keeping order and dropping duplicates
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]struct{})

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q in ADMIN_IDS: %w", part, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
