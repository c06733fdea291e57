package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

const usersCollection = "users"

// FirestoreCollectionRepository Firestoreの users/{uid} にコレクションを保存するリポジトリ
type FirestoreCollectionRepository struct {
	client *firestore.Client
	logger logrus.FieldLogger
}

var _ repository.CollectionRepository = (*FirestoreCollectionRepository)(nil)

// NewFirestoreCollectionRepository 新しいFirestoreCollectionRepositoryインスタンスを作成
func NewFirestoreCollectionRepository(client *firestore.Client, logger logrus.FieldLogger) *FirestoreCollectionRepository {
	return &FirestoreCollectionRepository{
		client: client,
		logger: logger,
	}
}

// Get はFirestoreからコレクションを取得する、ドキュメントがなければ (nil, nil)
func (r *FirestoreCollectionRepository) Get(ctx context.Context, userID string) (*model.UserCollection, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("Firestoreからのコレクション取得に失敗: %w", err)
	}

	var data model.FirestoreUserCollection
	if err := doc.DataTo(&data); err != nil {
		return nil, fmt.Errorf("データの変換に失敗しました: %w", err)
	}

	collection := data.ToUserCollection(userID)
	if collection.VideoIDs == nil {
		collection.VideoIDs = []string{}
	}
	r.logger.Debugf("✅ Firestoreからコレクション取得: %s (%d本)", userID, len(collection.VideoIDs))
	return collection, nil
}

// Save はコレクションをFirestoreに保存する
func (r *FirestoreCollectionRepository) Save(ctx context.Context, collection *model.UserCollection) error {
	if collection == nil || collection.UserID == "" {
		return fmt.Errorf("ユーザーIDは必須です")
	}

	_, err := r.client.Collection(usersCollection).Doc(collection.UserID).Set(ctx, collection.ToFirestore())
	if err != nil {
		r.logger.WithError(err).Errorf("❌ Failed to save collection %s", collection.UserID)
		return fmt.Errorf("Firestoreへのコレクション保存に失敗: %w", err)
	}

	r.logger.Debugf("✅ Collection saved: %s", collection.UserID)
	return nil
}
