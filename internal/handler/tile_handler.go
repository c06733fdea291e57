package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/service"
	"Storyworld-App/internal/usecase"
)

// TileHandler はタイル読み込みAPIのハンドラー
type TileHandler struct {
	tileUseCase usecase.TileLoadUseCase
	sweeper     *service.CooldownSweeper
}

// NewTileHandler は新しいTileHandlerインスタンスを作成
func NewTileHandler(tileUseCase usecase.TileLoadUseCase, sweeper *service.CooldownSweeper) *TileHandler {
	return &TileHandler{
		tileUseCase: tileUseCase,
		sweeper:     sweeper,
	}
}

// GetTiles は現在地周辺のタイルを読み込む
// GET /tiles?user_id=..&lat=..&lng=..[&radius=..]
func (h *TileHandler) GetTiles(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "user_id", Message: "ユーザーIDは必須です"})
		return
	}
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "lat", Message: "緯度を数値で指定してください"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "lng", Message: "経度を数値で指定してください"})
		return
	}
	if err := validLocation("center", &model.Location{Latitude: lat, Longitude: lng}); err != nil {
		respondError(c, "バリデーションエラー", err)
		return
	}

	radius := -1
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.Atoi(raw)
		if err != nil || radius < 0 || radius > 5 {
			respondError(c, "バリデーションエラー", &ValidationError{Field: "radius", Message: "radiusは0から5の整数で指定してください"})
			return
		}
	}

	response, err := h.tileUseCase.LoadTiles(c.Request.Context(), userID, model.LatLng{Lat: lat, Lng: lng}, radius)
	if err != nil {
		respondError(c, "タイルの読み込みに失敗しました", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ResetVisibility はユーザーの全タイルを非表示に戻す
// POST /tiles/visibility/reset?user_id=..
func (h *TileHandler) ResetVisibility(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "user_id", Message: "ユーザーIDは必須です"})
		return
	}
	n, err := h.tileUseCase.ResetVisibility(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "表示状態のリセットに失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset_tiles": n})
}

// GetCooldowns は最新のクールダウンスナップショットを返す、未取得なら即時スイープする
// user_idを指定した場合はそのユーザー分だけをその場で計算する
// GET /tiles/cooldowns[?user_id=..]
func (h *TileHandler) GetCooldowns(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		snapshot, err := h.sweeper.SnapshotFor(c.Request.Context(), userID)
		if err != nil {
			respondError(c, "クールダウン情報の取得に失敗しました", err)
			return
		}
		c.JSON(http.StatusOK, snapshot)
		return
	}

	snapshot := h.sweeper.Latest()
	if snapshot == nil {
		var err error
		snapshot, err = h.sweeper.SweepOnce(c.Request.Context())
		if err != nil {
			respondError(c, "クールダウン情報の取得に失敗しました", err)
			return
		}
	}
	c.JSON(http.StatusOK, snapshot)
}
