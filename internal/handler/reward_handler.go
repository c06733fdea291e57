package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

// RewardHandler は報酬抽選関数のハンドラー（{"data": ...} → {"result": ...}）
type RewardHandler struct {
	provider repository.RewardProvider
}

// NewRewardHandler は新しいRewardHandlerインスタンスを作成
func NewRewardHandler(provider repository.RewardProvider) *RewardHandler {
	return &RewardHandler{provider: provider}
}

type rewardDrawBody struct {
	Data *model.RewardRequest `json:"data"`
}

// PostDraw は条件に合う未所持の動画を1本抽選する
// POST /rewards/draw
func (h *RewardHandler) PostDraw(c *gin.Context) {
	var body rewardDrawBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	if body.Data == nil {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "data", Message: "dataは必須です"})
		return
	}
	if !body.Data.ByChannel() && (body.Data.Genre == "" || body.Data.Rarity == "") {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "data", Message: "genreとrarity、またはchannel_idを指定してください"})
		return
	}

	video, err := h.provider.DrawVideo(c.Request.Context(), *body.Data)
	if err != nil {
		respondError(c, "動画の抽選に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": video})
}
