package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "0 0 * * 0", cfg.Schedule.ActivationCron)
	assert.False(t, cfg.Schedule.ActivationEnabled)
	assert.Equal(t, time.Minute, cfg.BalanceFeed.Interval)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.UseR2())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  addr: ":9000"
database:
  dsn: "postgres://file"
auth:
  session_ttl: 2h
notifier:
  telegram_chat: 42
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ACTIVATION_CRON", "30 1 * * 0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, int64(42), cfg.Notifier.TelegramChat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "30 1 * * 0", cfg.Schedule.ActivationCron)
	assert.True(t, cfg.Schedule.ActivationEnabled)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, cfg.Validate(), "database.dsn")

	cfg.Database.DSN = "postgres://x"
	cfg.Auth.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "jwt_secret")

	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	cfg.Auth.SealingKey = "k"
	cfg.Auth.ServiceToken = "t"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Bucket = "payment-screenshots"
	assert.ErrorContains(t, cfg.Validate(), "storage")

	cfg.Storage.AccountID, cfg.Storage.AccessKeyID, cfg.Storage.AccessKeySecret = "acc", "id", "secret"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.UseR2())
}
