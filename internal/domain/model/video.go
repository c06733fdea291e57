package model

import "time"

// Video 報酬として獲得できるショート動画
type Video struct {
	ID              string `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Genre           string `json:"genre" db:"genre"`
	Rarity          Rarity `json:"rarity" db:"rarity"`
	ChannelID       string `json:"channel_id,omitempty" db:"channel_id"`
	VideoURL        string `json:"video_url" db:"video_url"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
}

// RewardRequest 報酬抽選のリクエスト（ジャンル＋レアリティ、またはチャンネル指定）
type RewardRequest struct {
	Genre      string   `json:"genre,omitempty"`
	Rarity     Rarity   `json:"rarity,omitempty"`
	ChannelID  string   `json:"channel_id,omitempty"`
	ExcludeIDs []string `json:"exclude_ids,omitempty"` // 所持済み動画
}

// ByChannel はチャンネル指定のリクエストか判定する
func (r RewardRequest) ByChannel() bool {
	return r.ChannelID != ""
}

// UserCollection ユーザーの獲得動画とコイン・経験値
type UserCollection struct {
	UserID     string    `json:"user_id"`
	VideoIDs   []string  `json:"video_ids"`
	Coins      int       `json:"coins"`
	Experience int       `json:"experience"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Owns は動画を所持しているか判定する
func (c *UserCollection) Owns(videoID string) bool {
	for _, id := range c.VideoIDs {
		if id == videoID {
			return true
		}
	}
	return false
}

// AddVideo は未所持なら動画を追加する、追加した場合true
func (c *UserCollection) AddVideo(videoID string) bool {
	if c.Owns(videoID) {
		return false
	}
	c.VideoIDs = append(c.VideoIDs, videoID)
	return true
}

// Level は経験値から算出したレベル（100XPごとに1レベル）
func (c *UserCollection) Level() int {
	return c.Experience/100 + 1
}

// FirestoreUserCollection Firestoreの users/{uid} ドキュメント
type FirestoreUserCollection struct {
	CollectedVideos []string  `firestore:"collectedVideos"`
	Coins           int       `firestore:"coins"`
	Experience      int       `firestore:"experience"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

// ToFirestore Firestore保存用の構造体に変換
func (c *UserCollection) ToFirestore() *FirestoreUserCollection {
	ids := c.VideoIDs
	if ids == nil {
		ids = []string{}
	}
	return &FirestoreUserCollection{
		CollectedVideos: ids,
		Coins:           c.Coins,
		Experience:      c.Experience,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToUserCollection Firestoreのドキュメントから変換
func (f *FirestoreUserCollection) ToUserCollection(userID string) *UserCollection {
	return &UserCollection{
		UserID:     userID,
		VideoIDs:   f.CollectedVideos,
		Coins:      f.Coins,
		Experience: f.Experience,
		UpdatedAt:  f.UpdatedAt,
	}
}
