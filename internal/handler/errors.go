package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/domain/model"
)

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// statusFor はドメインエラーをHTTPステータスに変換する
func statusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, model.ErrInvalidCoordinate),
		errors.Is(err, model.ErrInvalidZoom),
		errors.Is(err, model.ErrInvalidTileKey),
		errors.Is(err, model.ErrTileKeyMismatch),
		errors.Is(err, model.ErrUnknownGenre),
		errors.Is(err, model.ErrUnknownRarity),
		errors.Is(err, model.ErrUserIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrTileNotFound),
		errors.Is(err, model.ErrCircleNotFound),
		errors.Is(err, model.ErrNoVideosAvailable):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDropInProgress),
		errors.Is(err, model.ErrNotPurchasable),
		errors.Is(err, model.ErrCircleCoolingDown):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError はエラー内容に応じたステータスで {"error", "details"} を返す
func respondError(c *gin.Context, message string, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func validLocation(field string, loc *model.Location) error {
	if loc == nil {
		return &ValidationError{Field: field, Message: "位置情報は必須です"}
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return &ValidationError{Field: field + ".latitude", Message: "緯度は-90から90の範囲で指定してください"}
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return &ValidationError{Field: field + ".longitude", Message: "経度は-180から180の範囲で指定してください"}
	}
	return nil
}
