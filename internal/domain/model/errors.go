package model

import "errors"

var (
	ErrInvalidCoordinate = errors.New("無効な座標です")
	ErrInvalidZoom       = errors.New("無効なズームレベルです")
	ErrInvalidTileKey    = errors.New("無効なタイルキーです")
	ErrTileNotFound      = errors.New("タイルが見つかりません")
	ErrCircleNotFound    = errors.New("サークルが見つかりません")
	ErrTileKeyMismatch   = errors.New("サークルのタイルキーがレコードと一致しません")
	ErrCircleCoolingDown = errors.New("サークルはクールダウン中です")
	ErrUserIDRequired    = errors.New("ユーザーIDは必須です")

	ErrNoVideosAvailable = errors.New("獲得できる動画がありません")
	ErrDropInProgress    = errors.New("ドロップ処理が進行中です")
	ErrInsufficientCoins = errors.New("コインが不足しています")
	ErrNotPurchasable    = errors.New("このサークルは購入対象ではありません")
	ErrUnknownRarity     = errors.New("不明なレアリティです")
	ErrUnknownGenre      = errors.New("不明なジャンルです")
)
