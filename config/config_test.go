package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "Basic", cfg.Leads.FallbackPlanName)
	assert.Equal(t, int64(5000), cfg.Leads.FreeTierLeadFeeCents)
	assert.Equal(t, int64(2000), cfg.Leads.FreeTierMinBalanceCents)
	assert.Equal(t, 10, cfg.Scheduler.OutboxMaxAttempts)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: "9000"
  read_timeout: 5s
database:
  driver: memory
leads:
  fallback_plan_name: Starter
jwt:
  access_secret: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_ACCESS_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "Starter", cfg.Leads.FallbackPlanName)
	assert.Equal(t, "from-env", cfg.JWT.AccessSecret)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_WebhookSecret(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate(), "stub provider in development may run without a secret")

	cfg.Server.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Payment.Provider = "razorpay"
	assert.Error(t, cfg.Validate())

	cfg.Payment.WebhookSecret = "whsec"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProductionWithoutWebhookSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.Error(t, err)
}

func TestUnsignedWebhooksAllowed(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.UnsignedWebhooksAllowed(), "off unless opted in")

	cfg.Payment.AllowUnsignedWebhooks = true
	assert.True(t, cfg.UnsignedWebhooksAllowed())

	cfg.Server.Env = "production"
	assert.False(t, cfg.UnsignedWebhooksAllowed())

	cfg.Server.Env = "development"
	cfg.Payment.Provider = "razorpay"
	assert.False(t, cfg.UnsignedWebhooksAllowed())
}
