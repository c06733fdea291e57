package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/infrastructure/sqlite"
)

// collectionKeyPrefix コレクションJSONを保存する固定キー
const collectionKeyPrefix = "collected_videos/"

// SQLiteCollectionRepository ユーザーコレクションをkv_storeにJSONで保存するリポジトリ
type SQLiteCollectionRepository struct {
	client *sqlite.SQLiteClient
	logger logrus.FieldLogger
}

var _ repository.CollectionRepository = (*SQLiteCollectionRepository)(nil)

// NewSQLiteCollectionRepository 新しいSQLiteCollectionRepositoryインスタンスを作成
func NewSQLiteCollectionRepository(client *sqlite.SQLiteClient, logger logrus.FieldLogger) *SQLiteCollectionRepository {
	return &SQLiteCollectionRepository{client: client, logger: logger}
}

// Get はローカルに保存されたコレクションを取得する
// JSONが壊れている場合は空として扱う（リモートとの同期で復元される）
func (r *SQLiteCollectionRepository) Get(ctx context.Context, userID string) (*model.UserCollection, error) {
	var value string
	err := r.client.DB.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, collectionKeyPrefix+userID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗: %w", err)
	}

	var collection model.UserCollection
	if err := json.Unmarshal([]byte(value), &collection); err != nil {
		r.logger.WithError(err).Warnf("⚠️ 壊れたコレクションを無視: %s", userID)
		return nil, nil
	}
	collection.UserID = userID
	if collection.VideoIDs == nil {
		collection.VideoIDs = []string{}
	}
	return &collection, nil
}

// Save はコレクションをJSONで保存する
func (r *SQLiteCollectionRepository) Save(ctx context.Context, collection *model.UserCollection) error {
	if collection == nil || collection.UserID == "" {
		return fmt.Errorf("ユーザーIDは必須です")
	}

	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("コレクションのJSONマーシャル失敗: %w", err)
	}

	_, err = r.client.DB.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		collectionKeyPrefix+collection.UserID, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("コレクションの保存に失敗: %w", err)
	}
	return nil
}
