package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteClient 端末ローカル相当の永続化に使うSQLite接続
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLiteClient はSQLiteファイルを開く（ディレクトリがなければ作成）
func NewSQLiteClient(path string) (*SQLiteClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("DBディレクトリの作成に失敗: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLiteの初期化に失敗: %w", err)
	}

	// 書き込みは1コネクションに直列化する
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLiteClient{DB: db}, nil
}

// InitSchema は必要なテーブルを作成する
func (c *SQLiteClient) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tile_records (
			tile_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tile_visibility (
			user_id TEXT NOT NULL,
			tile_key TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, tile_key)
		);`,
		`CREATE TABLE IF NOT EXISTS circle_activations (
			user_id TEXT NOT NULL,
			tile_key TEXT NOT NULL,
			circle_id TEXT NOT NULL,
			activated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, circle_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_circle_activations_tile ON circle_activations(user_id, tile_key);`,
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("スキーマの初期化に失敗: %w", err)
		}
	}
	return nil
}

// Close データベース接続を閉じる
func (c *SQLiteClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (c *SQLiteClient) HealthCheck(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("SQLiteクライアントが初期化されていません")
	}
	return c.DB.PingContext(ctx)
}
