package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsWithSqlite(t *testing.T) {
	t.Setenv("JORNADA_DB_DRIVER", "sqlite")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "jornada.db", cfg.SQLitePath)
	assert.Equal(t, 100, cfg.ReconcileBatchSize)
	assert.Equal(t, 30, cfg.HealthIntervalSeconds)
	assert.Equal(t, 5, cfg.HealthProbeTimeoutSeconds)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("JORNADA_DB_DRIVER", "postgres")
	t.Setenv("JORNADA_POSTGRES_DSN", "postgres://u:p@localhost:5432/jornada")
	t.Setenv("JORNADA_HTTP_PORT", "9191")
	t.Setenv("JORNADA_RECONCILE_BATCH_SIZE", "25")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, 25, cfg.ReconcileBatchSize)
}

func TestResolveDefaults_Rejections(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{DBDriver: "oracle", ReconcileBatchSize: 100, HealthIntervalSeconds: 30, HealthProbeTimeoutSeconds: 5}},
		{"postgres without dsn", Config{DBDriver: "postgres", ReconcileBatchSize: 100, HealthIntervalSeconds: 30, HealthProbeTimeoutSeconds: 5}},
		{"sqlite without path", Config{DBDriver: "sqlite", ReconcileBatchSize: 100, HealthIntervalSeconds: 30, HealthProbeTimeoutSeconds: 5}},
		{"non-positive batch", Config{DBDriver: "sqlite", SQLitePath: "x.db", ReconcileBatchSize: 0, HealthIntervalSeconds: 30, HealthProbeTimeoutSeconds: 5}},
		{"non-positive health interval", Config{DBDriver: "sqlite", SQLitePath: "x.db", ReconcileBatchSize: 100, HealthIntervalSeconds: 0, HealthProbeTimeoutSeconds: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.ResolveDefaults())
		})
	}
}
