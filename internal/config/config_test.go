package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	viper.Reset()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "fleet")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JOBS_ALLOWED_CONNECTIONS", "3")
	t.Setenv("MQTT_SETTLE_DELAY", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 128, cfg.Jobs.PayloadLimit)
	assert.Equal(t, 3, cfg.Jobs.AllowedConnections)
	assert.Equal(t, 1000, cfg.Notification.PageSize)
	assert.Equal(t, "/sensors/+/data", cfg.MQTT.DataTopic)
	assert.Equal(t, time.Duration(0), cfg.MQTT.SettleDelay)
	assert.Equal(t, "host=db port=5432 user= password= dbname=fleet sslmode=disable", cfg.Database.DSN())
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsMissingSettings(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
