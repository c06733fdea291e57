package repository

import (
	"context"

	"Storyworld-App/internal/domain/model"
)

// CollectionRepository はユーザーの獲得動画コレクションを保存するリポジトリ
// ローカル（SQLite）とリモート（Firestore）の両方がこのインターフェースを実装する
type CollectionRepository interface {
	// Get はコレクションを取得する、存在しない場合は (nil, nil)
	Get(ctx context.Context, userID string) (*model.UserCollection, error)
	Save(ctx context.Context, collection *model.UserCollection) error
}
