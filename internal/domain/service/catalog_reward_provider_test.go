package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
)

func TestCatalogRewardProvider_DrawVideo(t *testing.T) {
	catalog := &memCatalog{videos: []model.Video{
		{ID: "m1", Genre: model.GenreMusic, Rarity: model.RarityRare},
		{ID: "m2", Genre: model.GenreMusic, Rarity: model.RarityRare},
		{ID: "m3", Genre: model.GenreMusic, Rarity: model.RarityCommon},
		{ID: "c1", Genre: model.GenreComedy, Rarity: model.RarityRare, ChannelID: "ch-1"},
	}}
	provider := NewCatalogRewardProvider(catalog, rand.New(rand.NewSource(3)))

	t.Run("ジャンルとレアリティが一致する未所持動画", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			video, err := provider.DrawVideo(context.Background(), model.RewardRequest{
				Genre: model.GenreMusic, Rarity: model.RarityRare, ExcludeIDs: []string{"m1"},
			})
			require.NoError(t, err)
			assert.Equal(t, "m2", video.ID)
		}
	})

	t.Run("全部所持済みなら在庫なし", func(t *testing.T) {
		_, err := provider.DrawVideo(context.Background(), model.RewardRequest{
			Genre: model.GenreMusic, Rarity: model.RarityRare, ExcludeIDs: []string{"m1", "m2"},
		})
		assert.ErrorIs(t, err, model.ErrNoVideosAvailable)
	})

	t.Run("チャンネル指定", func(t *testing.T) {
		video, err := provider.DrawVideo(context.Background(), model.RewardRequest{ChannelID: "ch-1"})
		require.NoError(t, err)
		assert.Equal(t, "c1", video.ID)
	})

	t.Run("不明なジャンル・レアリティ", func(t *testing.T) {
		_, err := provider.DrawVideo(context.Background(), model.RewardRequest{Genre: "cooking", Rarity: model.RarityRare})
		assert.ErrorIs(t, err, model.ErrUnknownGenre)
		_, err = provider.DrawVideo(context.Background(), model.RewardRequest{Genre: model.GenreMusic, Rarity: "mythic"})
		assert.ErrorIs(t, err, model.ErrUnknownRarity)
	})

	t.Run("カタログのエラーはラップして返す", func(t *testing.T) {
		boom := errors.New("db down")
		p := NewCatalogRewardProvider(&memCatalog{err: boom}, nil)
		_, err := p.DrawVideo(context.Background(), model.RewardRequest{Genre: model.GenreMusic, Rarity: model.RarityRare})
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, model.ErrNoVideosAvailable))
	})
}
