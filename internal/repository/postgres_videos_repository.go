package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/infrastructure/database"
)

// PostgresVideosRepository videosテーブルから報酬動画の候補を検索するリポジトリ
type PostgresVideosRepository struct {
	client *database.PostgreSQLClient
}

// NewPostgresVideosRepository 新しいPostgresVideosRepositoryインスタンスを作成
func NewPostgresVideosRepository(client *database.PostgreSQLClient) repository.VideoCatalogRepository {
	return &PostgresVideosRepository{
		client: client,
	}
}

// VideoResult SQLの結果を受け取るための構造体
type VideoResult struct {
	ID              string
	Title           string
	Genre           string
	Rarity          string
	ChannelID       sql.NullString
	VideoURL        string
	ThumbnailURL    sql.NullString
	DurationSeconds int
}

// ToVideo VideoResultをmodel.Videoに変換
func (vr *VideoResult) ToVideo() model.Video {
	return model.Video{
		ID:              vr.ID,
		Title:           vr.Title,
		Genre:           vr.Genre,
		Rarity:          model.Rarity(vr.Rarity),
		ChannelID:       vr.ChannelID.String,
		VideoURL:        vr.VideoURL,
		ThumbnailURL:    vr.ThumbnailURL.String,
		DurationSeconds: vr.DurationSeconds,
	}
}

const videoColumns = `id, title, genre, rarity, channel_id, video_url, thumbnail_url, duration_seconds`

// FindByGenreAndRarity はジャンル・レアリティに一致する未所持の動画を検索する
func (r *PostgresVideosRepository) FindByGenreAndRarity(ctx context.Context, genre string, rarity model.Rarity, excludeIDs []string) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE genre = $1
		  AND rarity = $2
		  AND NOT (id = ANY($3))
		ORDER BY id
		LIMIT 200
	`

	rows, err := r.client.DB.QueryContext(ctx, query, genre, string(rarity), pq.Array(nonNilIDs(excludeIDs)))
	if err != nil {
		return nil, fmt.Errorf("動画検索失敗 (%s/%s): %w", genre, rarity, err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// FindByChannel はチャンネルに属する未所持の動画を検索する
func (r *PostgresVideosRepository) FindByChannel(ctx context.Context, channelID string, excludeIDs []string) ([]model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE channel_id = $1
		  AND NOT (id = ANY($2))
		ORDER BY id
		LIMIT 200
	`

	rows, err := r.client.DB.QueryContext(ctx, query, channelID, pq.Array(nonNilIDs(excludeIDs)))
	if err != nil {
		return nil, fmt.Errorf("チャンネル %s の動画検索失敗: %w", channelID, err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func scanVideos(rows *sql.Rows) ([]model.Video, error) {
	var videos []model.Video
	for rows.Next() {
		var result VideoResult
		err := rows.Scan(&result.ID, &result.Title, &result.Genre, &result.Rarity,
			&result.ChannelID, &result.VideoURL, &result.ThumbnailURL, &result.DurationSeconds)
		if err != nil {
			return nil, fmt.Errorf("動画データスキャンエラー: %w", err)
		}
		videos = append(videos, result.ToVideo())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("動画データの読み込みに失敗: %w", err)
	}
	return videos, nil
}

// nonNilIDs は空配列をNULLではなく '{}' として渡すため
func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
