package repository

import (
	"context"
	"sync"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

// MemoryVideosRepository はメモリ上の動画カタログ（カタログDB未設定時・テスト用）
type MemoryVideosRepository struct {
	mu     sync.RWMutex
	videos []model.Video
}

var _ repository.VideoCatalogRepository = (*MemoryVideosRepository)(nil)

// NewMemoryVideosRepository 新しいMemoryVideosRepositoryインスタンスを作成
func NewMemoryVideosRepository(videos ...model.Video) *MemoryVideosRepository {
	return &MemoryVideosRepository{videos: append([]model.Video(nil), videos...)}
}

// Add は動画をカタログに追加する
func (r *MemoryVideosRepository) Add(videos ...model.Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos = append(r.videos, videos...)
}

func (r *MemoryVideosRepository) FindByGenreAndRarity(ctx context.Context, genre string, rarity model.Rarity, excludeIDs []string) ([]model.Video, error) {
	return r.find(ctx, excludeIDs, func(v model.Video) bool {
		return v.Genre == genre && v.Rarity == rarity
	})
}

func (r *MemoryVideosRepository) FindByChannel(ctx context.Context, channelID string, excludeIDs []string) ([]model.Video, error) {
	return r.find(ctx, excludeIDs, func(v model.Video) bool {
		return v.ChannelID == channelID
	})
}

func (r *MemoryVideosRepository) find(ctx context.Context, excludeIDs []string, match func(model.Video) bool) ([]model.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []model.Video
	for _, v := range r.videos {
		if _, ok := excluded[v.ID]; ok || !match(v) {
			continue
		}
		found = append(found, v)
	}
	return found, nil
}
