package repository

import (
	"context"
	"time"

	"Storyworld-App/internal/domain/model"
)

// TileCacheStore はタイルキー（"x/y/zoom"）ごとのサークルと、ユーザーごとの表示状態・使用履歴を永続化するストア
// サークルの一覧は全ユーザーで共有し、表示フラグとクールダウンはユーザー単位で持つ
// 同一キーへの読み書きは実装側で直列化する
type TileCacheStore interface {
	// Get はユーザーから見たレコードを取得する、タイルが存在しない場合は (nil, nil)
	Get(ctx context.Context, userID, tileKey string) (*model.TileRecord, error)

	// Put はレコードを保存する。ユーザーに表示中のレコードがあれば何もしない
	// 既存のタイルはサークルを作り直さず、ユーザーの表示フラグのみ更新する
	Put(ctx context.Context, userID, tileKey string, circles []model.Circle, visible bool) (bool, error)

	// PutMany はPutと同じルールを各タイルに適用し、1トランザクションで書き込む
	PutMany(ctx context.Context, userID string, records []model.TileRecord) (int, error)

	// SetVisible はユーザーの表示フラグを更新する
	SetVisible(ctx context.Context, userID, tileKey string, visible bool) error

	// ResetVisibility はユーザーの表示フラグを全て下ろす（サークルと使用履歴は保持）
	ResetVisibility(ctx context.Context, userID string) (int, error)

	// UpdateCircle はユーザーの使用履歴をcircle.LastActivatedAtに合わせる（nilなら未使用に戻す）
	UpdateCircle(ctx context.Context, userID, tileKey string, circle model.Circle) error

	// ActivateIfReady はクールダウンを再確認し、使用可能ならnowで使用済みにする
	// クールダウン中なら現在のサークルと ErrCircleCoolingDown を返す
	ActivateIfReady(ctx context.Context, userID, tileKey, circleID string, now time.Time) (model.Circle, error)

	// VisibleRecords はユーザーに表示中のレコード一覧を返す、userIDが空なら全ユーザー分
	VisibleRecords(ctx context.Context, userID string) ([]model.TileRecord, error)

	// Clear は全レコードを削除する
	Clear(ctx context.Context) error
}
