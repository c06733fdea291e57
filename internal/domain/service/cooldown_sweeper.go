package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

// SweepRecorder はスイープ結果の計測を受け取る
type SweepRecorder interface {
	ObserveSweep(snapshot *model.CooldownSnapshot)
}

// CooldownSweeper は表示中タイルのクールダウンを定期的に再計算する
type CooldownSweeper struct {
	store    repository.TileCacheStore
	interval time.Duration
	recorder SweepRecorder
	logger   logrus.FieldLogger
	now      func() time.Time

	mu     sync.RWMutex
	latest *model.CooldownSnapshot
}

// NewCooldownSweeper は新しいCooldownSweeperインスタンスを作成
func NewCooldownSweeper(store repository.TileCacheStore, interval time.Duration, recorder SweepRecorder, logger logrus.FieldLogger) *CooldownSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &CooldownSweeper{
		store:    store,
		interval: interval,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock は現在時刻の取得関数を差し替える
// Runを開始する前にのみ呼ぶこと
func (s *CooldownSweeper) WithClock(now func() time.Time) *CooldownSweeper {
	s.now = now
	return s
}

// Run はctxがキャンセルされるまで定期スイープを続ける
func (s *CooldownSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infof("⏱️ クールダウンスイープ開始 (間隔: %v)", s.interval)
	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.WithError(err).Warn("⚠️ クールダウンスイープに失敗")
		}

		select {
		case <-ctx.Done():
			s.logger.Info("🛑 クールダウンスイープ停止")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce は全ユーザーの表示中タイルについて残りクールダウンを計算してスナップショットを更新する
func (s *CooldownSweeper) SweepOnce(ctx context.Context) (*model.CooldownSnapshot, error) {
	snapshot, err := s.snapshot(ctx, "")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = snapshot
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.ObserveSweep(snapshot)
	}
	s.logger.Debugf("🔄 スイープ完了: タイル%d, 使用可能%d, クールダウン中%d",
		snapshot.VisibleTiles, snapshot.ReadyCircles, snapshot.CoolingCircles)

	return snapshot, nil
}

// SnapshotFor は1ユーザーの表示中タイルのクールダウンをその場で計算する（最新スナップショットは更新しない）
func (s *CooldownSweeper) SnapshotFor(ctx context.Context, userID string) (*model.CooldownSnapshot, error) {
	if userID == "" {
		return nil, model.ErrUserIDRequired
	}
	return s.snapshot(ctx, userID)
}

func (s *CooldownSweeper) snapshot(ctx context.Context, userID string) (*model.CooldownSnapshot, error) {
	records, err := s.store.VisibleRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("表示中タイルの取得に失敗: %w", err)
	}

	now := s.now()
	snapshot := &model.CooldownSnapshot{
		UserID:       userID,
		TakenAt:      now.UTC().Format(time.RFC3339),
		VisibleTiles: len(records),
		Circles:      []model.CircleStatus{},
	}
	for _, record := range records {
		for _, circle := range record.Circles {
			status := CircleStatusAt(circle, now)
			status.UserID = record.UserID
			if status.Ready {
				snapshot.ReadyCircles++
			} else {
				snapshot.CoolingCircles++
			}
			snapshot.Circles = append(snapshot.Circles, status)
		}
	}
	return snapshot, nil
}

// Latest は最新のスナップショットを返す（未実行ならnil）
func (s *CooldownSweeper) Latest() *model.CooldownSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
