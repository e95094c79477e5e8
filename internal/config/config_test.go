package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"BOT_TOKEN", "ADMIN_IDS", "LOG_LEVEL",
	"REGISTRY_BACKEND", "REGISTRY_FILE", "MIGRATIONS_PATH",
	"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	"CONVERSATION_TTL", "SEND_TIMEOUT", "POLL_TIMEOUT", "USER_COOLDOWN",
	"BROADCAST_WORKERS", "BROADCAST_RATE", "QR_SIZE",
}

// clearEnv empties every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		setEnv       bool
		envValue     string
		expected     string
	}{
		{
			name:         "env variable set",
			key:          "TEST_KEY",
			defaultValue: "default",
			setEnv:       true,
			envValue:     "custom",
			expected:     "custom",
		},
		{
			name:         "env variable not set",
			key:          "TEST_KEY_NOT_SET",
			defaultValue: "default",
			setEnv:       false,
			expected:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}

			result := getEnv(tt.key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "testuser",
			Password: "testpass",
			Name:     "testdb",
		},
	}

	dsn := cfg.DSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, dsn)
}

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "single", raw: "42", want: []int64{42}},
		{name: "list keeps order", raw: "7, 3 ,5", want: []int64{7, 3, 5}},
		{name: "duplicates dropped", raw: "7,3,7", want: []int64{7, 3}},
		{name: "empty parts skipped", raw: ",7,,", want: []int64{7}},
		{name: "empty", raw: "", want: nil},
		{name: "not a number", raw: "7,bob", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdminIDs(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("ADMIN_IDS", "100,200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_token", cfg.BotToken)
	assert.Equal(t, []int64{100, 200}, cfg.AdminIDs)
	assert.Equal(t, int64(100), cfg.PrimaryAdmin())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendFile, cfg.Registry.Backend)
	assert.Equal(t, "user_stats.json", cfg.Registry.File)
	assert.Equal(t, "migrations", cfg.Registry.MigrationsPath)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "qrbot", cfg.Database.Name)
	assert.Equal(t, "qrbot", cfg.Database.User)
	assert.Equal(t, 10*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.UserCooldown)
	assert.Equal(t, 4, cfg.Broadcast.Workers)
	assert.Equal(t, 25.0, cfg.Broadcast.RatePerSec)
	assert.Equal(t, 512, cfg.QRSize)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "test_token")
	t.Setenv("ADMIN_IDS", "100")
	t.Setenv("REGISTRY_BACKEND", "Postgres")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("CONVERSATION_TTL", "30m")
	t.Setenv("USER_COOLDOWN", "0")
	t.Setenv("BROADCAST_WORKERS", "8")
	t.Setenv("BROADCAST_RATE", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Registry.Backend)
	assert.Equal(t, 30*time.Minute, cfg.ConversationTTL)
	assert.Zero(t, cfg.UserCooldown)
	assert.Equal(t, 8, cfg.Broadcast.Workers)
	assert.Equal(t, 0.5, cfg.Broadcast.RatePerSec)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing token",
			env:     map[string]string{"ADMIN_IDS": "1"},
			wantErr: "BOT_TOKEN",
		},
		{
			name:    "missing admins",
			env:     map[string]string{"BOT_TOKEN": "t"},
			wantErr: "ADMIN_IDS",
		},
		{
			name:    "bad admin id",
			env:     map[string]string{"BOT_TOKEN": "t", "ADMIN_IDS": "x"},
			wantErr: "ADMIN_IDS",
		},
		{
			name:    "postgres without password",
			env:     map[string]string{"BOT_TOKEN": "t", "ADMIN_IDS": "1", "REGISTRY_BACKEND": "postgres"},
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"BOT_TOKEN": "t", "ADMIN_IDS": "1", "REGISTRY_BACKEND": "redis"},
			wantErr: "REGISTRY_BACKEND",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"BOT_TOKEN": "t", "ADMIN_IDS": "1", "SEND_TIMEOUT": "soon"},
			wantErr: "SEND_TIMEOUT",
		},
		{
			name:    "zero workers",
			env:     map[string]string{"BOT_TOKEN": "t", "ADMIN_IDS": "1", "BROADCAST_WORKERS": "0"},
			wantErr: "BROADCAST_WORKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
