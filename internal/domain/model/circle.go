package model

import "time"

// Circle タイルに出現するドロップサークル
type Circle struct {
	ID              string     `json:"id"`
	Genre           string     `json:"genre"`
	Rarity          Rarity     `json:"rarity"`
	Location        LatLng     `json:"location"`
	BasePrice       int        `json:"base_price"`
	CooldownSeconds int        `json:"cooldown_seconds"`
	LastActivatedAt *time.Time `json:"last_activated_at,omitempty"` // 未使用ならnil
	TileKey         string     `json:"tile_key"`
}

// Cooldown クールダウン時間をDurationで返す
func (c Circle) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// RemainingCooldownAt は残りクールダウン時間を返す
// max(クールダウン - (now - 最終使用), 0)、未使用なら0
func (c Circle) RemainingCooldownAt(now time.Time) time.Duration {
	if c.LastActivatedAt == nil {
		return 0
	}

	elapsed := now.Sub(*c.LastActivatedAt)
	if elapsed < 0 {
		// 時計が巻き戻った場合でもクールダウン時間を超えない
		elapsed = 0
	}

	remaining := c.Cooldown() - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TileRecord 1タイル分のレコード（ユーザーごとの表示状態・使用履歴を反映したもの）
// サークルの一覧は全ユーザー共通、Visibleとサークルの LastActivatedAt はUserIDのもの
type TileRecord struct {
	TileKey   string    `json:"tile_key"`
	UserID    string    `json:"user_id,omitempty"`
	Circles   []Circle  `json:"circles"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
}

// FindCircle はID指定でサークルを探す
func (r *TileRecord) FindCircle(circleID string) (Circle, bool) {
	for _, c := range r.Circles {
		if c.ID == circleID {
			return c, true
		}
	}
	return Circle{}, false
}

// ReplaceCircle は同じIDのサークルを差し替える、見つからなければfalse
func (r *TileRecord) ReplaceCircle(updated Circle) bool {
	for i, c := range r.Circles {
		if c.ID == updated.ID {
			r.Circles[i] = updated
			return true
		}
	}
	return false
}

// Clone はサークル一覧を含めたコピーを返す
func (r *TileRecord) Clone() *TileRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Circles = make([]Circle, len(r.Circles))
	copy(cp.Circles, r.Circles)
	return &cp
}

// CircleStatus クールダウン情報付きのサークル（レスポンス用）
type CircleStatus struct {
	Circle
	UserID                   string `json:"user_id,omitempty"` // スイープ結果でのみ設定
	RemainingCooldownSeconds int    `json:"remaining_cooldown_seconds"`
	Ready                    bool   `json:"ready"`
}
