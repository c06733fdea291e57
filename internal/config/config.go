package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"Storyworld-App/internal/domain/model"
)

// Config サーバーの設定値
type Config struct {
	Port     string
	LogLevel string
	LogFile  string

	Zoom             int
	TileRadius       int
	SpawnProbability float64
	NearThresholdM   float64
	RewardTimeout    time.Duration
	SweepInterval    time.Duration

	SQLitePath string

	FirestoreProjectID   string
	GoogleCredentialFile string

	CatalogBackend    string
	PostgresDSN       string
	SupabaseURL       string
	SupabaseKey       string
	RewardFunctionURL string
}

// 動画カタログの接続先
const (
	CatalogBackendPostgres = "postgres"
	CatalogBackendSupabase = "supabase"
	CatalogBackendNone     = "none"
)

// Load は .env と STORYWORLD_* 環境変数から設定を読み込む
func Load() (*Config, error) {
	// .envがなくてもエラーにしない
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("STORYWORLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("zoom", model.DefaultZoom)
	v.SetDefault("tile_radius", model.DefaultTileRadius)
	v.SetDefault("spawn_probability", model.DefaultSpawnProbability)
	v.SetDefault("near_threshold_m", model.DefaultNearThresholdM)
	v.SetDefault("reward_timeout", "10s")
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("sqlite_path", "data/storyworld.db")
	v.SetDefault("firestore_project_id", "")
	v.SetDefault("google_application_credentials", "")
	v.SetDefault("catalog_backend", CatalogBackendNone)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_key", "")
	v.SetDefault("reward_function_url", "")

	// Cloud Run等の標準的な環境変数も受け付ける
	_ = v.BindEnv("port", "STORYWORLD_PORT", "PORT")
	_ = v.BindEnv("google_application_credentials", "STORYWORLD_GOOGLE_APPLICATION_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("postgres_dsn", "STORYWORLD_POSTGRES_DSN", "SUPABASE_DB_URL")
	return v
}

// FromViper はviperの値から設定を組み立てて検証する
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                 v.GetString("port"),
		LogLevel:             v.GetString("log_level"),
		LogFile:              v.GetString("log_file"),
		Zoom:                 v.GetInt("zoom"),
		TileRadius:           v.GetInt("tile_radius"),
		SpawnProbability:     v.GetFloat64("spawn_probability"),
		NearThresholdM:       v.GetFloat64("near_threshold_m"),
		RewardTimeout:        v.GetDuration("reward_timeout"),
		SweepInterval:        v.GetDuration("sweep_interval"),
		SQLitePath:           v.GetString("sqlite_path"),
		FirestoreProjectID:   v.GetString("firestore_project_id"),
		GoogleCredentialFile: v.GetString("google_application_credentials"),
		CatalogBackend:       strings.ToLower(v.GetString("catalog_backend")),
		PostgresDSN:          v.GetString("postgres_dsn"),
		SupabaseURL:          v.GetString("supabase_url"),
		SupabaseKey:          v.GetString("supabase_key"),
		RewardFunctionURL:    v.GetString("reward_function_url"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の範囲をチェックする
func (c *Config) Validate() error {
	if c.Zoom < 0 || c.Zoom > model.MaxZoom {
		return fmt.Errorf("invalid STORYWORLD_ZOOM %d: %w", c.Zoom, model.ErrInvalidZoom)
	}
	if c.TileRadius < 0 {
		return fmt.Errorf("invalid STORYWORLD_TILE_RADIUS: %d", c.TileRadius)
	}
	if c.SpawnProbability < 0 || c.SpawnProbability > 1 {
		return fmt.Errorf("invalid STORYWORLD_SPAWN_PROBABILITY: %v", c.SpawnProbability)
	}
	if c.NearThresholdM <= 0 {
		return fmt.Errorf("invalid STORYWORLD_NEAR_THRESHOLD_M: %v", c.NearThresholdM)
	}
	if c.RewardTimeout <= 0 {
		return fmt.Errorf("invalid STORYWORLD_REWARD_TIMEOUT: %v", c.RewardTimeout)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("invalid STORYWORLD_SWEEP_INTERVAL: %v", c.SweepInterval)
	}
	if c.SQLitePath == "" {
		return fmt.Errorf("STORYWORLD_SQLITE_PATH is required")
	}

	switch c.CatalogBackend {
	case CatalogBackendNone:
	case CatalogBackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("STORYWORLD_POSTGRES_DSN is required for catalog backend %q", c.CatalogBackend)
		}
	case CatalogBackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("STORYWORLD_SUPABASE_URL and STORYWORLD_SUPABASE_KEY are required for catalog backend %q", c.CatalogBackend)
		}
	default:
		return fmt.Errorf("unknown STORYWORLD_CATALOG_BACKEND: %q", c.CatalogBackend)
	}
	return nil
}
