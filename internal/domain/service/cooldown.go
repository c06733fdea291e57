package service

import (
	"math"
	"time"

	"Storyworld-App/internal/domain/model"
)

// RemainingCooldown は残りクールダウン時間を返す
func RemainingCooldown(c model.Circle, now time.Time) time.Duration {
	return c.RemainingCooldownAt(now)
}

// IsReady はサークルが使用可能か判定する
func IsReady(c model.Circle, now time.Time) bool {
	return RemainingCooldown(c, now) == 0
}

// Activate は最終使用時刻をnowにしたコピーを返す
// 永続化は呼び出し側の責務
func Activate(c model.Circle, now time.Time) model.Circle {
	activatedAt := now
	c.LastActivatedAt = &activatedAt
	return c
}

// CircleStatusAt はレスポンス用にクールダウン情報を付与する
func CircleStatusAt(c model.Circle, now time.Time) model.CircleStatus {
	remaining := RemainingCooldown(c, now)
	return model.CircleStatus{
		Circle:                   c,
		RemainingCooldownSeconds: int(math.Ceil(remaining.Seconds())),
		Ready:                    remaining == 0,
	}
}
