package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/usecase"
)

// DropHandler はサークルのドロップAPIのハンドラー
type DropHandler struct {
	dropUseCase usecase.DropUseCase
}

// NewDropHandler は新しいDropHandlerインスタンスを作成
func NewDropHandler(dropUseCase usecase.DropUseCase) *DropHandler {
	return &DropHandler{dropUseCase: dropUseCase}
}

// PostDrop はサークルをタップしたときの判定を行う
// 報酬取得の失敗は failure_reason 付きの200で返す
// POST /drops
func (h *DropHandler) PostDrop(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	outcome, err := h.dropUseCase.Drop(c.Request.Context(), req)
	if err != nil {
		respondError(c, "ドロップの判定に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// PostPurchase はクールダウン中のサークルをコインで購入する
// POST /drops/purchase
func (h *DropHandler) PostPurchase(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	outcome, err := h.dropUseCase.Purchase(c.Request.Context(), req)
	if err != nil {
		respondError(c, "サークルの購入に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *DropHandler) bindRequest(c *gin.Context) (*model.DropRequest, bool) {
	var req model.DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return nil, false
	}
	if err := validateDropRequest(&req); err != nil {
		respondError(c, "バリデーションエラー", err)
		return nil, false
	}
	return &req, true
}

func validateDropRequest(req *model.DropRequest) error {
	if req.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "ユーザーIDは必須です"}
	}
	if req.TileKey == "" {
		return &ValidationError{Field: "tile_key", Message: "タイルキーは必須です"}
	}
	if req.CircleID == "" {
		return &ValidationError{Field: "circle_id", Message: "サークルIDは必須です"}
	}
	return validLocation("user_location", req.UserLocation)
}
