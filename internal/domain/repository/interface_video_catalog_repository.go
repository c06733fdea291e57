package repository

import (
	"context"

	"Storyworld-App/internal/domain/model"
)

// VideoCatalogRepository は報酬動画のカタログを検索するリポジトリ
type VideoCatalogRepository interface {
	FindByGenreAndRarity(ctx context.Context, genre string, rarity model.Rarity, excludeIDs []string) ([]model.Video, error)
	FindByChannel(ctx context.Context, channelID string, excludeIDs []string) ([]model.Video, error)
}

// RewardProvider は報酬動画を1本抽選する
// 候補がない場合は model.ErrNoVideosAvailable を返す
type RewardProvider interface {
	DrawVideo(ctx context.Context, req model.RewardRequest) (*model.Video, error)
}
