package model

// DropRequest ドロップ（サークルのタップ）リクエスト
type DropRequest struct {
	UserID       string    `json:"user_id" validate:"required"`
	TileKey      string    `json:"tile_key" validate:"required"`
	CircleID     string    `json:"circle_id" validate:"required"`
	UserLocation *Location `json:"user_location" validate:"required"`
}

// RewardGrant ドロップ成功時に付与された報酬
type RewardGrant struct {
	Video      *Video `json:"video"`
	Experience int    `json:"experience"`
	Coins      int    `json:"coins"`
	CoinsSpent int    `json:"coins_spent,omitempty"`
}

// DropOutcome ドロップ判定の結果
type DropOutcome struct {
	State                    DropState    `json:"state"`   // 最終状態（常にresolved）
	Outcome                  DropState    `json:"outcome"` // immediate_reward / cooldown_blocked
	Trace                    []DropState  `json:"trace"`   // 通過した状態
	CircleID                 string       `json:"circle_id"`
	TileKey                  string       `json:"tile_key"`
	DistanceMeters           float64      `json:"distance_meters"`
	RemainingCooldownSeconds int          `json:"remaining_cooldown_seconds"`
	BlockReason              string       `json:"block_reason,omitempty"`
	PurchasePrice            int          `json:"purchase_price,omitempty"` // 代替ルート（有料）の価格
	Reward                   *RewardGrant `json:"reward,omitempty"`
	FailureReason            string       `json:"failure_reason,omitempty"`
}

// Succeeded は報酬を獲得できたか判定する
func (o *DropOutcome) Succeeded() bool {
	return o.Reward != nil && o.FailureReason == ""
}

// TileLoadResponse 表示タイルの読み込み結果
type TileLoadResponse struct {
	UserID       string         `json:"user_id"`
	CenterTile   string         `json:"center_tile"`
	Tiles        []string       `json:"tiles"`
	NewTiles     int            `json:"new_tiles"`     // 今回生成したタイル数
	RedrawnTiles int            `json:"redrawn_tiles"` // キャッシュから再表示したタイル数
	Circles      []CircleStatus `json:"circles"`       // 新たに描画すべきサークル
}

// CooldownSnapshot 定期スイープで計算したクールダウン状況
type CooldownSnapshot struct {
	UserID         string         `json:"user_id,omitempty"` // 空なら全ユーザー
	TakenAt        string         `json:"taken_at"`
	VisibleTiles   int            `json:"visible_tiles"`
	ReadyCircles   int            `json:"ready_circles"`
	CoolingCircles int            `json:"cooling_circles"`
	Circles        []CircleStatus `json:"circles"`
}
