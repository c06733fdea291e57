package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"Storyworld-App/internal/domain/helper"
	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

// CatalogRewardProvider は動画カタログから未所持の動画を抽選する
type CatalogRewardProvider struct {
	catalog repository.VideoCatalogRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCatalogRewardProvider は新しいCatalogRewardProviderインスタンスを作成
func NewCatalogRewardProvider(catalog repository.VideoCatalogRepository, rng *rand.Rand) *CatalogRewardProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CatalogRewardProvider{catalog: catalog, rng: rng}
}

// DrawVideo はジャンル＋レアリティ（またはチャンネル）の候補から1本を選ぶ
func (p *CatalogRewardProvider) DrawVideo(ctx context.Context, req model.RewardRequest) (*model.Video, error) {
	var (
		candidates []model.Video
		err        error
	)

	if req.ByChannel() {
		candidates, err = p.catalog.FindByChannel(ctx, req.ChannelID, req.ExcludeIDs)
	} else {
		if !model.IsValidGenre(req.Genre) {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownGenre, req.Genre)
		}
		if !model.IsValidRarity(req.Rarity) {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownRarity, req.Rarity)
		}
		candidates, err = p.catalog.FindByGenreAndRarity(ctx, req.Genre, req.Rarity, req.ExcludeIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("動画カタログの検索に失敗: %w", err)
	}

	// Supabase実装はDB側で除外しない
	candidates = helper.FilterExcludedVideos(candidates, req.ExcludeIDs)
	if len(candidates) == 0 {
		return nil, model.ErrNoVideosAvailable
	}

	p.mu.Lock()
	picked := candidates[p.rng.Intn(len(candidates))]
	p.mu.Unlock()

	return &picked, nil
}
