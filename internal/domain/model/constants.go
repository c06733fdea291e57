package model

// GenreConstants はドロップサークルに割り当てられる動画ジャンルの定数
const (
	GenreComedy    = "comedy"
	GenreMusic     = "music"
	GenreDance     = "dance"
	GenreFood      = "food"
	GenreTravel    = "travel"
	GenreAnimal    = "animal"
	GenreSports    = "sports"
	GenreHorror    = "horror"
	GenreDaily     = "daily"
	GenreKnowledge = "knowledge"
)

// GenreNameMap はジャンルIDから表示名へのマッピング
var GenreNameMap = map[string]string{
	GenreComedy:    "コメディ",
	GenreMusic:     "音楽",
	GenreDance:     "ダンス",
	GenreFood:      "グルメ",
	GenreTravel:    "旅行",
	GenreAnimal:    "動物",
	GenreSports:    "スポーツ",
	GenreHorror:    "ホラー",
	GenreDaily:     "日常",
	GenreKnowledge: "知識",
}

// GetAllGenres は全ジャンルの一覧を取得する（順序固定）
func GetAllGenres() []string {
	return []string{
		GenreComedy,
		GenreMusic,
		GenreDance,
		GenreFood,
		GenreTravel,
		GenreAnimal,
		GenreSports,
		GenreHorror,
		GenreDaily,
		GenreKnowledge,
	}
}

// IsValidGenre はジャンルIDが既知のものか判定する
func IsValidGenre(genre string) bool {
	_, ok := GenreNameMap[genre]
	return ok
}

// GetGenreDisplayName はジャンルIDから表示名を取得する
func GetGenreDisplayName(genre string) string {
	if name, ok := GenreNameMap[genre]; ok {
		return name
	}
	return genre // デフォルトはそのまま返す
}

// ゲーム全体のデフォルト値（設定で上書き可能）
const (
	DefaultZoom             = 18
	DefaultTileRadius       = 1
	DefaultSpawnProbability = 0.3
	DefaultNearThresholdM   = 80.0
	MaxZoom                 = 22

	// Web Mercatorで表現できる緯度の上限
	MaxMercatorLatitude = 85.05112878
)

// DropState はドロップ判定の状態
type DropState string

const (
	DropStateIdle            DropState = "idle"
	DropStateEvaluating      DropState = "evaluating"
	DropStateImmediateReward DropState = "immediate_reward"
	DropStateCooldownBlocked DropState = "cooldown_blocked"
	DropStateResolved        DropState = "resolved"
)

// BlockReason はCooldownBlockedになった理由
const (
	BlockReasonCooldown = "cooldown"
	BlockReasonTooFar   = "too_far"
)

// FailureReason はドロップが報酬なしで終わった理由
const (
	FailureNoVideos      = "no_videos_available"
	FailureRewardFetch   = "reward_fetch_failed"
	FailureRewardTimeout = "reward_timeout"
	FailurePersist       = "persist_failed"
)
