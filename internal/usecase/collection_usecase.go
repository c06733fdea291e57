package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/helper"
	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

type CollectionUseCase interface {
	// GetCollection はローカルに保存されたコレクションを返す（なければ空）
	GetCollection(ctx context.Context, userID string) (*model.UserCollection, error)

	// SyncOnLogin はローカルとリモートのコレクションをマージして両方に書き戻す
	SyncOnLogin(ctx context.Context, userID string) (*model.UserCollection, error)
}

// collectionUseCaseImpl はCollectionUseCaseの実装
type collectionUseCaseImpl struct {
	local  repository.CollectionRepository
	remote repository.CollectionRepository // Firestore未設定ならnil
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewCollectionUseCase は新しいCollectionUseCaseインスタンスを作成
func NewCollectionUseCase(local, remote repository.CollectionRepository, logger logrus.FieldLogger) CollectionUseCase {
	return &collectionUseCaseImpl{
		local:  local,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

func (u *collectionUseCaseImpl) GetCollection(ctx context.Context, userID string) (*model.UserCollection, error) {
	collection, err := u.local.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if collection == nil {
		collection = &model.UserCollection{UserID: userID, VideoIDs: []string{}}
	}
	return collection, nil
}

// SyncOnLogin は動画IDの和集合をとり、コイン・経験値は更新日時が新しい方を採用する
func (u *collectionUseCaseImpl) SyncOnLogin(ctx context.Context, userID string) (*model.UserCollection, error) {
	local, err := u.local.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ローカルコレクションの取得に失敗: %w", err)
	}

	if u.remote == nil {
		u.logger.Debug("⚠️ リモートストア未設定のためローカルのみ使用")
		if local == nil {
			local = &model.UserCollection{UserID: userID, VideoIDs: []string{}}
		}
		return local, nil
	}

	remote, err := u.remote.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("リモートコレクションの取得に失敗: %w", err)
	}

	merged := MergeCollections(userID, local, remote)
	if merged.UpdatedAt.IsZero() {
		merged.UpdatedAt = u.now()
	}

	if err := u.local.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("ローカルコレクションの保存に失敗: %w", err)
	}
	if err := u.remote.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("リモートコレクションの保存に失敗: %w", err)
	}

	u.logger.WithFields(logrus.Fields{
		"user":   userID,
		"videos": len(merged.VideoIDs),
	}).Info("✅ コレクション同期完了")
	return merged, nil
}

// MergeCollections は2つのコレクションをマージする。同時刻ならローカルを優先
func MergeCollections(userID string, local, remote *model.UserCollection) *model.UserCollection {
	if local == nil {
		local = &model.UserCollection{}
	}
	if remote == nil {
		remote = &model.UserCollection{}
	}

	newer := local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		newer = remote
	}

	return &model.UserCollection{
		UserID:     userID,
		VideoIDs:   helper.MergeVideoIDs(local.VideoIDs, remote.VideoIDs),
		Coins:      newer.Coins,
		Experience: newer.Experience,
		UpdatedAt:  newer.UpdatedAt,
	}
}
