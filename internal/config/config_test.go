package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("CAREGIVER_JWT_SECRET", "0123456789abcdef")
	t.Setenv("CAREGIVER_DATABASE_DRIVER", "memory")
	t.Setenv("CAREGIVER_DASHBOARD_STALE_AFTER", "2m")
	t.Setenv("ECHOCARE_WEBHOOK_URL", "https://hooks.test/in")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.StaleAfter)
	assert.Equal(t, 30*time.Minute, cfg.Dashboard.IdleTTL)
	assert.Equal(t, "https://hooks.test/in", cfg.Integrations.WebhookURL)
	assert.Empty(t, cfg.Integrations.QAURL)
	assert.Equal(t, 15*time.Second, cfg.Integrations.HTTPTimeout)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
jwt:
  secret: a-very-long-test-secret
dashboard:
  default_timezone: Asia/Kolkata
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Dashboard.DefaultTimezone)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	t.Setenv("CAREGIVER_JWT_SECRET", "short")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("CAREGIVER_JWT_SECRET", "0123456789abcdef")
	t.Setenv("CAREGIVER_DATABASE_DRIVER", "sqlite")
	_, err = Load("")
	assert.Error(t, err)
}
