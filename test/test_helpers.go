package test

import (
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"Storyworld-App/internal/infrastructure/database"
)

// setupTestEnvironment は ../.env を読み込む（CI環境等では存在しなくてもよい）
func setupTestEnvironment() {
	_ = godotenv.Load("../.env")
}

// requireEnv は必要な環境変数を返す。未設定ならテストをスキップする
func requireEnv(t *testing.T, keys ...string) map[string]string {
	t.Helper()
	setupTestEnvironment()

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			t.Skipf("%s が設定されていないためスキップ", key)
		}
		values[key] = v
	}
	return values
}

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

// setupTestPostgresClient はリトライ付きでPostgreSQLに接続する
func setupTestPostgresClient(t *testing.T) *database.PostgreSQLClient {
	t.Helper()
	env := requireEnv(t, "STORYWORLD_POSTGRES_DSN")

	// 接続テストでは短いリトライ間隔を使用
	client, err := database.NewPostgreSQLClientWithRetry(env["STORYWORLD_POSTGRES_DSN"], 3, time.Second, newTestLogger())
	if err != nil {
		t.Fatalf("PostgreSQL接続失敗: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// optionalEnv は任意の環境変数を返す（未設定なら空文字）
func optionalEnv(key string) string {
	return os.Getenv(key)
}
