package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/infrastructure/database"
)

// SupabaseVideosRepository Supabase（PostgREST）経由で動画カタログを検索するリポジトリ
// 除外IDの絞り込みは呼び出し側で行う
type SupabaseVideosRepository struct {
	client *database.SupabaseClient
}

// NewSupabaseVideosRepository 新しいSupabaseVideosRepositoryインスタンスを作成
func NewSupabaseVideosRepository(client *database.SupabaseClient) repository.VideoCatalogRepository {
	return &SupabaseVideosRepository{
		client: client,
	}
}

func (r *SupabaseVideosRepository) FindByGenreAndRarity(ctx context.Context, genre string, rarity model.Rarity, excludeIDs []string) ([]model.Video, error) {
	data, count, err := r.client.GetClient().From("videos").
		Select("*", "exact", false).
		Eq("genre", genre).
		Eq("rarity", string(rarity)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("動画データの取得失敗 (%s/%s): %w", genre, rarity, err)
	}
	_ = count

	return decodeSupabaseVideos(data)
}

func (r *SupabaseVideosRepository) FindByChannel(ctx context.Context, channelID string, excludeIDs []string) ([]model.Video, error) {
	data, count, err := r.client.GetClient().From("videos").
		Select("*", "exact", false).
		Eq("channel_id", channelID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("チャンネル %s の動画データ取得失敗: %w", channelID, err)
	}
	_ = count

	return decodeSupabaseVideos(data)
}

func decodeSupabaseVideos(data []byte) ([]model.Video, error) {
	var videos []model.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("動画データのJSONアンマーシャル失敗: %w", err)
	}
	return videos, nil
}
