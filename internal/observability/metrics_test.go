package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storyworld-App/internal/domain/model"
)

func TestCollector_ObserveDrop(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	require.NoError(t, err)

	collector.ObserveDrop(&model.DropOutcome{Outcome: model.DropStateImmediateReward})
	collector.ObserveDrop(&model.DropOutcome{Outcome: model.DropStateCooldownBlocked, BlockReason: model.BlockReasonTooFar})
	collector.ObserveDrop(&model.DropOutcome{Outcome: model.DropStateCooldownBlocked, BlockReason: model.BlockReasonTooFar})
	collector.ObserveDrop(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Drops.WithLabelValues("immediate_reward", "", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Drops.WithLabelValues("cooldown_blocked", "too_far", "")))
}

func TestCollector_ObserveRewardDraw(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	require.NoError(t, err)

	collector.ObserveRewardDraw(20*time.Millisecond, nil)
	collector.ObserveRewardDraw(time.Second, model.ErrNoVideosAvailable)
	collector.ObserveRewardDraw(10*time.Second, context.DeadlineExceeded)

	assert.Equal(t, 3, testutil.CollectAndCount(collector.RewardDraws, "storyworld_reward_draw_duration_seconds"))
}

func TestCollector_ObserveSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	require.NoError(t, err)

	collector.ObserveSweep(&model.CooldownSnapshot{VisibleTiles: 9, ReadyCircles: 2, CoolingCircles: 1})
	collector.ObserveCirclesGenerated(3)
	collector.ObserveCirclesGenerated(0)

	assert.Equal(t, 9.0, testutil.ToFloat64(collector.VisibleTiles))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.ReadyCircles))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.CoolingCircles))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.CirclesGenerated))
}

func TestNewCollector_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveCirclesGenerated(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.CirclesGenerated))
}

func TestCollector_GinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	require.NoError(t, err)

	router := gin.New()
	router.Use(collector.GinMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.True(t, strings.Contains(string(body), "storyworld_http_requests_total"))
}
