package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/usecase"
)

// CollectionHandler はユーザーコレクションAPIのハンドラー
type CollectionHandler struct {
	collectionUseCase usecase.CollectionUseCase
}

// NewCollectionHandler は新しいCollectionHandlerインスタンスを作成
func NewCollectionHandler(collectionUseCase usecase.CollectionUseCase) *CollectionHandler {
	return &CollectionHandler{collectionUseCase: collectionUseCase}
}

type collectionResponse struct {
	*model.UserCollection
	Level int `json:"level"`
}

// GetCollection はユーザーのコレクションを返す
// GET /users/:id/collection
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "id", Message: "ユーザーIDが指定されていません"})
		return
	}

	collection, err := h.collectionUseCase.GetCollection(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "コレクションの取得に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, collectionResponse{UserCollection: collection, Level: collection.Level()})
}

// PostSync はログイン時にローカルとリモートのコレクションを同期する
// POST /users/:id/sync
func (h *CollectionHandler) PostSync(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		respondError(c, "バリデーションエラー", &ValidationError{Field: "id", Message: "ユーザーIDが指定されていません"})
		return
	}

	collection, err := h.collectionUseCase.SyncOnLogin(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "コレクションの同期に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, collectionResponse{UserCollection: collection, Level: collection.Level()})
}
