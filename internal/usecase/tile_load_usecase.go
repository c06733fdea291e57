package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/domain/service"
)

// GenerationRecorder は新規生成したサークル数の計測を受け取る
type GenerationRecorder interface {
	ObserveCirclesGenerated(n int)
}

type TileLoadUseCase interface {
	// LoadTiles は中心座標の周囲のタイルを読み込み、ユーザーが新たに描画すべきサークルを返す
	LoadTiles(ctx context.Context, userID string, center model.LatLng, radius int) (*model.TileLoadResponse, error)

	// ResetVisibility はユーザーの全タイルを非表示に戻す（バックグラウンド復帰時の再描画用）
	ResetVisibility(ctx context.Context, userID string) (int, error)
}

// tileLoadUseCaseImpl はTileLoadUseCaseの実装
type tileLoadUseCaseImpl struct {
	mapper        *service.TileMapper
	generator     *service.CircleGenerator
	store         repository.TileCacheStore
	recorder      GenerationRecorder
	logger        logrus.FieldLogger
	defaultRadius int
	now           func() time.Time
}

// NewTileLoadUseCase は新しいTileLoadUseCaseインスタンスを作成
func NewTileLoadUseCase(
	mapper *service.TileMapper,
	generator *service.CircleGenerator,
	store repository.TileCacheStore,
	recorder GenerationRecorder,
	logger logrus.FieldLogger,
	defaultRadius int,
) TileLoadUseCase {
	return &tileLoadUseCaseImpl{
		mapper:        mapper,
		generator:     generator,
		store:         store,
		recorder:      recorder,
		logger:        logger,
		defaultRadius: defaultRadius,
		now:           time.Now,
	}
}

// LoadTiles はタイル範囲を計算し、キャッシュにないタイルだけサークルを生成する
// ユーザーに非表示のタイル（他のユーザーが生成したものを含む）はサークルを再生成せず再表示し、
// 範囲外になったユーザーの表示中タイルは非表示にする
func (u *tileLoadUseCaseImpl) LoadTiles(ctx context.Context, userID string, center model.LatLng, radius int) (*model.TileLoadResponse, error) {
	if userID == "" {
		return nil, model.ErrUserIDRequired
	}
	if radius < 0 {
		radius = u.defaultRadius
	}

	centerTile, err := u.mapper.TileFor(center)
	if err != nil {
		return nil, err
	}
	tiles, err := u.mapper.TilesInRange(center, radius)
	if err != nil {
		return nil, err
	}

	var (
		missing []model.Tile
		redrawn []*model.TileRecord
		inRange = make(map[string]struct{}, len(tiles))
		keys    = make([]string, 0, len(tiles))
	)
	for _, tile := range tiles {
		key := tile.Key()
		inRange[key] = struct{}{}
		keys = append(keys, key)

		record, err := u.store.Get(ctx, userID, key)
		if err != nil {
			return nil, fmt.Errorf("タイル %s の取得に失敗: %w", key, err)
		}
		switch {
		case record == nil:
			missing = append(missing, tile)
		case !record.Visible:
			if err := u.store.SetVisible(ctx, userID, key, true); err != nil {
				return nil, fmt.Errorf("タイル %s の再表示に失敗: %w", key, err)
			}
			redrawn = append(redrawn, record)
		}
	}

	newRecords, err := u.generateMissing(ctx, userID, missing)
	if err != nil {
		return nil, err
	}

	if err := u.hideOutOfRange(ctx, userID, inRange); err != nil {
		// 表示フラグの掃除に失敗しても読み込み結果は返す
		u.logger.WithError(err).Warn("⚠️ 範囲外タイルの非表示化に失敗")
	}

	now := u.now()
	response := &model.TileLoadResponse{
		UserID:       userID,
		CenterTile:   centerTile.Key(),
		Tiles:        keys,
		NewTiles:     len(newRecords),
		RedrawnTiles: len(redrawn),
		Circles:      []model.CircleStatus{},
	}
	for _, record := range append(newRecords, redrawn...) {
		for _, circle := range record.Circles {
			response.Circles = append(response.Circles, service.CircleStatusAt(circle, now))
		}
	}

	u.logger.WithFields(logrus.Fields{
		"user":    userID,
		"center":  response.CenterTile,
		"tiles":   len(keys),
		"new":     response.NewTiles,
		"redrawn": response.RedrawnTiles,
		"circles": len(response.Circles),
	}).Debug("🗺️ タイル読み込み完了")

	return response, nil
}

// generateMissing はキャッシュにないタイルのサークルを生成して一括保存する
// 同時に別リクエストが保存していた場合はそちらのサークルを返す
func (u *tileLoadUseCaseImpl) generateMissing(ctx context.Context, userID string, missing []model.Tile) ([]*model.TileRecord, error) {
	if len(missing) == 0 {
		return nil, nil
	}

	generated := u.generator.Generate(missing)
	records := make([]model.TileRecord, 0, len(missing))
	for _, tile := range missing {
		records = append(records, model.TileRecord{
			TileKey: tile.Key(),
			Circles: generated[tile.Key()],
			Visible: true,
		})
	}

	written, err := u.store.PutMany(ctx, userID, records)
	if err != nil {
		return nil, fmt.Errorf("生成したタイルの保存に失敗: %w", err)
	}

	stored := make([]*model.TileRecord, 0, len(records))
	count := 0
	for _, r := range records {
		record, err := u.store.Get(ctx, userID, r.TileKey)
		if err != nil {
			return nil, fmt.Errorf("タイル %s の再取得に失敗: %w", r.TileKey, err)
		}
		if record == nil {
			continue
		}
		stored = append(stored, record)
		count += len(record.Circles)
	}

	if u.recorder != nil {
		u.recorder.ObserveCirclesGenerated(count)
	}
	u.logger.Infof("✨ %d件のタイルを生成 (保存%d件, サークル%d個)", len(missing), written, count)
	return stored, nil
}

func (u *tileLoadUseCaseImpl) hideOutOfRange(ctx context.Context, userID string, inRange map[string]struct{}) error {
	visible, err := u.store.VisibleRecords(ctx, userID)
	if err != nil {
		return err
	}
	for _, record := range visible {
		if _, ok := inRange[record.TileKey]; ok {
			continue
		}
		if err := u.store.SetVisible(ctx, userID, record.TileKey, false); err != nil {
			return err
		}
	}
	return nil
}

// ResetVisibility はユーザーの全タイルの表示フラグを下ろす
func (u *tileLoadUseCaseImpl) ResetVisibility(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.ErrUserIDRequired
	}
	n, err := u.store.ResetVisibility(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("表示状態のリセットに失敗: %w", err)
	}
	u.logger.Infof("🔄 %s: %d件のタイルを非表示にリセット", userID, n)
	return n, nil
}
