package usecase

import (
	"context"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/service"
	"Storyworld-App/internal/infrastructure/sqlite"
	"Storyworld-App/internal/repository"
)

var seoul = model.LatLng{Lat: 37.5665, Lng: 126.9780}

type countingRecorder struct {
	mu    sync.Mutex
	total int
}

func (r *countingRecorder) ObserveCirclesGenerated(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total += n
}

func newTileStore(t *testing.T) *repository.SQLiteTileCacheRepository {
	t.Helper()
	client, err := sqlite.NewSQLiteClient(filepath.Join(t.TempDir(), "tiles.db"))
	require.NoError(t, err)
	require.NoError(t, client.InitSchema(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	logger, _ := test.NewNullLogger()
	store, err := repository.NewSQLiteTileCacheRepository(client, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func newTileLoadUseCase(t *testing.T, store *repository.SQLiteTileCacheRepository, spawn float64, recorder GenerationRecorder) TileLoadUseCase {
	t.Helper()
	mapper, err := service.NewTileMapper(18)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	return NewTileLoadUseCase(mapper, service.NewCircleGenerator(rand.New(rand.NewSource(11)), spawn), store, recorder, logger, 1)
}

func TestTileLoadUseCase_LoadTiles(t *testing.T) {
	ctx := context.Background()

	t.Run("空のキャッシュから9タイル生成し、各タイル1サークル", func(t *testing.T) {
		store := newTileStore(t)
		recorder := &countingRecorder{}
		uc := newTileLoadUseCase(t, store, 1.0, recorder)

		res, err := uc.LoadTiles(ctx, "user-a", seoul, -1)
		require.NoError(t, err)

		assert.Len(t, res.Tiles, 9)
		assert.Equal(t, 9, res.NewTiles)
		assert.Equal(t, 0, res.RedrawnTiles)
		assert.Len(t, res.Circles, 9)
		assert.Equal(t, 9, recorder.total)
		for _, c := range res.Circles {
			assert.True(t, c.Ready)
		}

		visible, err := store.VisibleRecords(ctx, "user-a")
		require.NoError(t, err)
		assert.Len(t, visible, 9)
	})

	t.Run("同じ場所の2回目は何も描画しない", func(t *testing.T) {
		store := newTileStore(t)
		uc := newTileLoadUseCase(t, store, 1.0, nil)

		_, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		res, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)

		assert.Equal(t, 0, res.NewTiles)
		assert.Equal(t, 0, res.RedrawnTiles)
		assert.Empty(t, res.Circles)
	})

	t.Run("リセット後は再生成せずに再描画", func(t *testing.T) {
		store := newTileStore(t)
		uc := newTileLoadUseCase(t, store, 1.0, nil)

		first, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)

		n, err := uc.ResetVisibility(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, 9, n)

		second, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, second.NewTiles)
		assert.Equal(t, 9, second.RedrawnTiles)

		ids := func(statuses []model.CircleStatus) map[string]bool {
			m := map[string]bool{}
			for _, s := range statuses {
				m[s.ID] = true
			}
			return m
		}
		assert.Equal(t, ids(first.Circles), ids(second.Circles))
	})

	t.Run("範囲外になったタイルは非表示になる", func(t *testing.T) {
		store := newTileStore(t)
		uc := newTileLoadUseCase(t, store, 0.5, nil)

		_, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		// 十分離れた地点へ移動
		_, err = uc.LoadTiles(ctx, "user-a", model.LatLng{Lat: 37.60, Lng: 127.05}, 1)
		require.NoError(t, err)

		visible, err := store.VisibleRecords(ctx, "user-a")
		require.NoError(t, err)
		assert.Len(t, visible, 9)

		mapper, _ := service.NewTileMapper(18)
		center, _ := mapper.TileFor(seoul)
		record, err := store.Get(ctx, "user-a", center.Key())
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.False(t, record.Visible)
	})

	t.Run("不正な座標", func(t *testing.T) {
		uc := newTileLoadUseCase(t, newTileStore(t), 1.0, nil)
		_, err := uc.LoadTiles(ctx, "user-a", model.LatLng{Lat: 100, Lng: 0}, 1)
		assert.ErrorIs(t, err, model.ErrInvalidCoordinate)
	})

	t.Run("並行読み込みでもサークルは重複生成されない", func(t *testing.T) {
		store := newTileStore(t)
		uc := newTileLoadUseCase(t, store, 1.0, nil)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		visible, err := store.VisibleRecords(ctx, "user-a")
		require.NoError(t, err)
		require.Len(t, visible, 9)
		for _, r := range visible {
			assert.Len(t, r.Circles, 1)
		}
	})

	t.Run("ユーザーIDは必須", func(t *testing.T) {
		uc := newTileLoadUseCase(t, newTileStore(t), 1.0, nil)
		_, err := uc.LoadTiles(ctx, "", seoul, 1)
		assert.ErrorIs(t, err, model.ErrUserIDRequired)
		_, err = uc.ResetVisibility(ctx, "")
		assert.ErrorIs(t, err, model.ErrUserIDRequired)
	})
}

func TestTileLoadUseCase_PerUserVisibility(t *testing.T) {
	ctx := context.Background()

	circleIDs := func(statuses []model.CircleStatus) map[string]bool {
		m := map[string]bool{}
		for _, s := range statuses {
			m[s.ID] = true
		}
		return m
	}

	t.Run("同じ場所を読み込んだ2人目のユーザーにも同じサークルが描画される", func(t *testing.T) {
		store := newTileStore(t)
		recorder := &countingRecorder{}
		uc := newTileLoadUseCase(t, store, 1.0, recorder)

		first, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		require.Len(t, first.Circles, 9)

		second, err := uc.LoadTiles(ctx, "user-b", seoul, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, second.NewTiles)
		assert.Equal(t, 9, second.RedrawnTiles)
		assert.Len(t, second.Circles, 9)
		assert.Equal(t, circleIDs(first.Circles), circleIDs(second.Circles))

		// サークルは最初の生成分だけ
		assert.Equal(t, 9, recorder.total)
	})

	t.Run("リセットと範囲外の非表示は本人のタイルだけ", func(t *testing.T) {
		store := newTileStore(t)
		uc := newTileLoadUseCase(t, store, 1.0, nil)

		_, err := uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		_, err = uc.LoadTiles(ctx, "user-b", seoul, 1)
		require.NoError(t, err)

		n, err := uc.ResetVisibility(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, 9, n)

		visibleB, err := store.VisibleRecords(ctx, "user-b")
		require.NoError(t, err)
		assert.Len(t, visibleB, 9)

		// user-bが移動してもuser-aの表示状態は変わらない
		_, err = uc.LoadTiles(ctx, "user-a", seoul, 1)
		require.NoError(t, err)
		_, err = uc.LoadTiles(ctx, "user-b", model.LatLng{Lat: 37.60, Lng: 127.05}, 1)
		require.NoError(t, err)

		visibleA, err := store.VisibleRecords(ctx, "user-a")
		require.NoError(t, err)
		assert.Len(t, visibleA, 9)

		all, err := store.VisibleRecords(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 18)
	})
}
