package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
)

type memCollections struct {
	mu    sync.Mutex
	items map[string]model.UserCollection
	err   error
}

func newMemCollections() *memCollections {
	return &memCollections{items: map[string]model.UserCollection{}}
}

func (m *memCollections) Get(ctx context.Context, userID string) (*model.UserCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.items[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCollections) Save(ctx context.Context, c *model.UserCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[c.UserID] = *c
	return nil
}

func TestCollectionUseCase_SyncOnLogin(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	t.Run("IDは和集合、コイン・経験値は新しい方", func(t *testing.T) {
		local, remote := newMemCollections(), newMemCollections()
		require.NoError(t, local.Save(ctx, &model.UserCollection{UserID: "u1", VideoIDs: []string{"a", "b"}, Coins: 10, Experience: 5, UpdatedAt: older}))
		require.NoError(t, remote.Save(ctx, &model.UserCollection{UserID: "u1", VideoIDs: []string{"b", "c"}, Coins: 99, Experience: 300, UpdatedAt: newer}))

		uc := NewCollectionUseCase(local, remote, logger)
		merged, err := uc.SyncOnLogin(ctx, "u1")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, merged.VideoIDs)
		assert.Equal(t, 99, merged.Coins)
		assert.Equal(t, 300, merged.Experience)

		for _, store := range []*memCollections{local, remote} {
			got, err := store.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b", "c"}, got.VideoIDs)
		}
	})

	t.Run("リモートが空ならローカルを書き戻す", func(t *testing.T) {
		local, remote := newMemCollections(), newMemCollections()
		require.NoError(t, local.Save(ctx, &model.UserCollection{UserID: "u1", VideoIDs: []string{"a"}, Coins: 10, UpdatedAt: older}))

		merged, err := NewCollectionUseCase(local, remote, logger).SyncOnLogin(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 10, merged.Coins)

		got, err := remote.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"a"}, got.VideoIDs)
	})

	t.Run("両方空なら空のコレクション", func(t *testing.T) {
		merged, err := NewCollectionUseCase(newMemCollections(), newMemCollections(), logger).SyncOnLogin(ctx, "new-user")
		require.NoError(t, err)
		assert.Equal(t, "new-user", merged.UserID)
		assert.Empty(t, merged.VideoIDs)
		assert.False(t, merged.UpdatedAt.IsZero())
	})

	t.Run("リモート未設定ならローカルのみ", func(t *testing.T) {
		local := newMemCollections()
		require.NoError(t, local.Save(ctx, &model.UserCollection{UserID: "u1", VideoIDs: []string{"a"}}))
		merged, err := NewCollectionUseCase(local, nil, logger).SyncOnLogin(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, merged.VideoIDs)
	})

	t.Run("リモートのエラーは返す", func(t *testing.T) {
		remote := newMemCollections()
		remote.err = errors.New("unavailable")
		_, err := NewCollectionUseCase(newMemCollections(), remote, logger).SyncOnLogin(ctx, "u1")
		assert.Error(t, err)
	})
}

func TestCollectionUseCase_GetCollection(t *testing.T) {
	logger, _ := test.NewNullLogger()
	uc := NewCollectionUseCase(newMemCollections(), nil, logger)

	got, err := uc.GetCollection(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.NotNil(t, got.VideoIDs)
	assert.Equal(t, 1, got.Level())
}

func TestMergeCollections_TiePrefersLocal(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	merged := MergeCollections("u1",
		&model.UserCollection{Coins: 1, UpdatedAt: at},
		&model.UserCollection{Coins: 2, UpdatedAt: at},
	)
	assert.Equal(t, 1, merged.Coins)
}
