package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/infrastructure/firestore"
	"Storyworld-App/internal/repository"
)

func TestFirestoreCollectionRepository_Integration(t *testing.T) {
	env := requireEnv(t, "STORYWORLD_FIRESTORE_PROJECT_ID")
	credentials := optionalEnv("GOOGLE_APPLICATION_CREDENTIALS")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := firestore.NewFirestoreClient(ctx, env["STORYWORLD_FIRESTORE_PROJECT_ID"], credentials, newTestLogger())
	require.NoError(t, err)
	defer client.Close()

	repo := repository.NewFirestoreCollectionRepository(client.GetClient(), newTestLogger())
	userID := fmt.Sprintf("integration-test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = client.GetClient().Collection("users").Doc(userID).Delete(context.Background())
	})

	t.Run("存在しないユーザーは(nil, nil)", func(t *testing.T) {
		got, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("保存して取得", func(t *testing.T) {
		updated := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, repo.Save(ctx, &model.UserCollection{
			UserID: userID, VideoIDs: []string{"v1", "v2"}, Coins: 40, Experience: 150, UpdatedAt: updated,
		}))

		got, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"v1", "v2"}, got.VideoIDs)
		assert.Equal(t, 40, got.Coins)
		assert.Equal(t, 150, got.Experience)
		assert.True(t, got.UpdatedAt.Equal(updated))
	})
}
