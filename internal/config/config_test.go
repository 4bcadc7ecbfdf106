package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "coldchain", cfg.Database.Database)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "coldchain", cfg.MQTT.TopicPrefix)

	// 外部评分默认禁用
	assert.Empty(t, cfg.Scorer.BaseURL)
	assert.Equal(t, 5, cfg.Scorer.TimeoutSec)

	assert.Equal(t, "coldchain:snapshot:", cfg.Advisor.Cache.SnapshotPrefix)
	assert.Equal(t, ":telemetry", cfg.Advisor.Cache.TelemetrySuffix)
	assert.Equal(t, 5, cfg.Advisor.PollInterval)
	assert.Equal(t, 10, cfg.Advisor.QueueLimit)
	assert.Equal(t, 30, cfg.Advisor.SimulationCooldown)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "15432")
	t.Setenv("SCORER_BASE_URL", "http://scorer:9000")
	t.Setenv("SIMULATION_COOLDOWN", "60")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "http://scorer:9000", cfg.Scorer.BaseURL)
	assert.Equal(t, 60, cfg.Advisor.SimulationCooldown)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Advisor.PollInterval)
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "coldchain", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=coldchain sslmode=disable", db.GetDSN())
}
