package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Storyworld-App/internal/domain/model"
)

func TestRemainingCooldown(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	circle := model.Circle{ID: "c1", CooldownSeconds: 600}

	t.Run("未使用なら0", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), RemainingCooldown(circle, t0))
		assert.True(t, IsReady(circle, t0))
	})

	t.Run("使用直後は全クールダウン", func(t *testing.T) {
		activated := Activate(circle, t0)
		assert.Equal(t, 600*time.Second, RemainingCooldown(activated, t0))
		assert.Nil(t, circle.LastActivatedAt, "元のサークルは変更しない")
	})

	t.Run("経過に応じて減り、負にならない", func(t *testing.T) {
		activated := Activate(circle, t0)
		for _, elapsed := range []time.Duration{0, time.Second, 599 * time.Second, 600 * time.Second, 601 * time.Second, 24 * time.Hour} {
			remaining := RemainingCooldown(activated, t0.Add(elapsed))
			assert.GreaterOrEqual(t, remaining, time.Duration(0))
			assert.Equal(t, remaining == 0, elapsed >= 600*time.Second)
		}
		assert.Equal(t, 300*time.Second, RemainingCooldown(activated, t0.Add(300*time.Second)))
	})

	t.Run("時計が巻き戻ってもクールダウンを超えない", func(t *testing.T) {
		activated := Activate(circle, t0)
		assert.Equal(t, 600*time.Second, RemainingCooldown(activated, t0.Add(-time.Hour)))
	})

	t.Run("レアリティごとのクールダウン", func(t *testing.T) {
		for _, tier := range model.RarityTable {
			c := Activate(model.Circle{Rarity: tier.Rarity, CooldownSeconds: tier.CooldownsSeconds[0]}, t0)
			assert.Equal(t, time.Duration(tier.CooldownsSeconds[0])*time.Second, RemainingCooldown(c, t0))
		}
	})
}

func TestCircleStatusAt(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	activated := Activate(model.Circle{ID: "c1", CooldownSeconds: 600}, t0)

	status := CircleStatusAt(activated, t0.Add(100*time.Second+500*time.Millisecond))
	assert.Equal(t, 500, status.RemainingCooldownSeconds)
	assert.False(t, status.Ready)

	status = CircleStatusAt(activated, t0.Add(10*time.Minute))
	assert.Equal(t, 0, status.RemainingCooldownSeconds)
	assert.True(t, status.Ready)
}
