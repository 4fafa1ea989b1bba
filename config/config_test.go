package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	require.Equal(t, 30*time.Second, cfg.Server.Timeout)
	require.True(t, cfg.Server.CorsEnabled)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.NotEmpty(t, cfg.DB.DSN)
	require.Equal(t, 50, cfg.DB.MaxOpenConns)
	require.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
	require.Equal(t, "localhost", cfg.Redis.Host)
	require.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	require.Equal(t, "plant-requests", cfg.Azure.QueueName)
	require.Equal(t, "plants", cfg.Elastic.Prefix)
	require.Equal(t, "System", cfg.Workflow.SystemActor)
	require.True(t, cfg.Workflow.AutoCreateOnApproval)
	require.Equal(t, 200, cfg.Projections.BatchSize)
	require.Equal(t, 30*time.Second, cfg.Projections.CatchUpInterval)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PLANTS_DATABASE_DSN", "postgresql://env:env@db:5432/env")
	t.Setenv("PLANTS_SERVER_ADDRESS", "127.0.0.1:9090")
	t.Setenv("PLANTS_WORKFLOW_SYSTEM_ACTOR", "Gardener")
	t.Setenv("PLANTS_PROJECTIONS_BATCH_SIZE", "25")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "postgresql://env:env@db:5432/env", cfg.DB.DSN)
	require.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	require.Equal(t, "Gardener", cfg.Workflow.SystemActor)
	require.Equal(t, 25, cfg.Projections.BatchSize)
}

func TestFormatIndex(t *testing.T) {
	cfg := ElasticConfig{Prefix: "plants"}
	require.Equal(t, "plants-catalog", FormatIndex(cfg, "catalog"))
}
