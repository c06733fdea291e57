package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/infrastructure/database"
	"Storyworld-App/internal/repository"
)

func TestSupabaseVideosRepository_Integration(t *testing.T) {
	env := requireEnv(t, "STORYWORLD_SUPABASE_URL", "STORYWORLD_SUPABASE_KEY")

	client, err := database.NewSupabaseClient(env["STORYWORLD_SUPABASE_URL"], env["STORYWORLD_SUPABASE_KEY"])
	require.NoError(t, err)
	require.NoError(t, client.HealthCheck())

	repo := repository.NewSupabaseVideosRepository(client)
	videos, err := repo.FindByGenreAndRarity(context.Background(), model.GenreComedy, model.RarityRare, nil)
	require.NoError(t, err)
	t.Logf("📊 comedy/rare: %d本", len(videos))

	for _, v := range videos {
		assert.Equal(t, model.GenreComedy, v.Genre)
		assert.Equal(t, model.RarityRare, v.Rarity)
	}
}
