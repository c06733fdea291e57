package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, model.DefaultZoom, cfg.Zoom)
	assert.Equal(t, model.DefaultTileRadius, cfg.TileRadius)
	assert.InDelta(t, model.DefaultSpawnProbability, cfg.SpawnProbability, 1e-9)
	assert.InDelta(t, 80.0, cfg.NearThresholdM, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.RewardTimeout)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, CatalogBackendNone, cfg.CatalogBackend)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("STORYWORLD_ZOOM", "16")
	t.Setenv("STORYWORLD_TILE_RADIUS", "2")
	t.Setenv("STORYWORLD_REWARD_TIMEOUT", "3s")
	t.Setenv("STORYWORLD_CATALOG_BACKEND", "Postgres")
	t.Setenv("STORYWORLD_POSTGRES_DSN", "postgres://localhost/storyworld")
	t.Setenv("PORT", "9090")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Zoom)
	assert.Equal(t, 2, cfg.TileRadius)
	assert.Equal(t, 3*time.Second, cfg.RewardTimeout)
	assert.Equal(t, CatalogBackendPostgres, cfg.CatalogBackend)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"ズームが範囲外", "STORYWORLD_ZOOM", "23"},
		{"出現確率が1超", "STORYWORLD_SPAWN_PROBABILITY", "1.5"},
		{"未知のカタログ", "STORYWORLD_CATALOG_BACKEND", "mysql"},
		{"postgresでDSNなし", "STORYWORLD_CATALOG_BACKEND", "postgres"},
		{"supabaseでキーなし", "STORYWORLD_CATALOG_BACKEND", "supabase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORYWORLD_POSTGRES_DSN", "")
			t.Setenv("SUPABASE_DB_URL", "")
			t.Setenv(tt.key, tt.val)
			_, err := FromViper(newViper())
			assert.Error(t, err)
		})
	}
}
