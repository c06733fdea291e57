package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
)

func TestMemoryVideosRepository(t *testing.T) {
	repo := NewMemoryVideosRepository(
		model.Video{ID: "v1", Genre: model.GenreDance, Rarity: model.RarityEpic, ChannelID: "ch"},
		model.Video{ID: "v2", Genre: model.GenreDance, Rarity: model.RarityEpic},
	)
	repo.Add(model.Video{ID: "v3", Genre: model.GenreDance, Rarity: model.RarityCommon, ChannelID: "ch"})

	found, err := repo.FindByGenreAndRarity(context.Background(), model.GenreDance, model.RarityEpic, []string{"v2"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "v1", found[0].ID)

	found, err = repo.FindByChannel(context.Background(), "ch", nil)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.FindByChannel(ctx, "ch", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedMutex_LockAllDeduplicates(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.LockAll([]string{"b", "a", "b"})
	unlock()

	// 解放後はキーが残らない
	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
