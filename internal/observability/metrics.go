package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Storyworld-App/internal/domain/model"
)

// Collector はドロップ・スイープ・HTTPのPrometheusメトリクスをまとめる
type Collector struct {
	gatherer prometheus.Gatherer

	Drops            *prometheus.CounterVec
	RewardDraws      *prometheus.HistogramVec
	CirclesGenerated prometheus.Counter
	VisibleTiles     prometheus.Gauge
	ReadyCircles     prometheus.Gauge
	CoolingCircles   prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDurations    *prometheus.HistogramVec
}

// NewCollector はメトリクスを登録する。regがnilならグローバルレジストリを使う
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	drops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyworld_drops_total",
		Help: "Resolved drops, labeled by outcome, block reason and failure reason.",
	}, []string{"outcome", "block_reason", "failure_reason"}), "storyworld_drops_total")
	if err != nil {
		return nil, err
	}

	draws, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyworld_reward_draw_duration_seconds",
		Help:    "Reward selection latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"result"}), "storyworld_reward_draw_duration_seconds")
	if err != nil {
		return nil, err
	}

	generated, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyworld_circles_generated_total",
		Help: "Circles spawned into newly generated tiles.",
	}), "storyworld_circles_generated_total")
	if err != nil {
		return nil, err
	}

	visible, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storyworld_visible_tiles",
		Help: "Visible tiles at the last cooldown sweep.",
	}), "storyworld_visible_tiles")
	if err != nil {
		return nil, err
	}
	ready, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storyworld_ready_circles",
		Help: "Visible circles with no remaining cooldown at the last sweep.",
	}), "storyworld_ready_circles")
	if err != nil {
		return nil, err
	}
	cooling, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storyworld_cooling_circles",
		Help: "Visible circles still cooling down at the last sweep.",
	}), "storyworld_cooling_circles")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyworld_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "storyworld_http_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyworld_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"}), "storyworld_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Drops:            drops,
		RewardDraws:      draws,
		CirclesGenerated: generated,
		VisibleTiles:     visible,
		ReadyCircles:     ready,
		CoolingCircles:   cooling,
		HTTPRequests:     requests,
		HTTPDurations:    durations,
	}, nil
}

// ObserveDrop は確定したドロップを数える
func (c *Collector) ObserveDrop(outcome *model.DropOutcome) {
	if c == nil || outcome == nil {
		return
	}
	c.Drops.WithLabelValues(string(outcome.Outcome), outcome.BlockReason, outcome.FailureReason).Inc()
}

// ObserveRewardDraw は報酬抽選のレイテンシを記録する
func (c *Collector) ObserveRewardDraw(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.RewardDraws.WithLabelValues(drawResult(err)).Observe(elapsed.Seconds())
}

// ObserveSweep はスイープ結果をゲージに反映する
func (c *Collector) ObserveSweep(snapshot *model.CooldownSnapshot) {
	if c == nil || snapshot == nil {
		return
	}
	c.VisibleTiles.Set(float64(snapshot.VisibleTiles))
	c.ReadyCircles.Set(float64(snapshot.ReadyCircles))
	c.CoolingCircles.Set(float64(snapshot.CoolingCircles))
}

// ObserveCirclesGenerated は新規生成したサークル数を加算する
func (c *Collector) ObserveCirclesGenerated(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.CirclesGenerated.Add(float64(n))
}

// GinMiddleware はリクエスト数とレイテンシを記録する
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		if c == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler は /metrics 用のハンドラを返す
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func drawResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrNoVideosAvailable):
		return "no_videos"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
