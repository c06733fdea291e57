package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"Storyworld-App/internal/observability"
)

// Handlers はルーターに登録するハンドラー一式
type Handlers struct {
	Health     *HealthHandler
	Tile       *TileHandler
	Drop       *DropHandler
	Reward     *RewardHandler
	Collection *CollectionHandler
}

// NewRouter はginエンジンを作成してルートを登録する
func NewRouter(h Handlers, metrics *observability.Collector) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	if metrics != nil {
		r.Use(metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/api/health", h.Health.GetHealth)

	tiles := r.Group("/tiles")
	{
		tiles.GET("", h.Tile.GetTiles)
		tiles.POST("/visibility/reset", h.Tile.ResetVisibility)
		tiles.GET("/cooldowns", h.Tile.GetCooldowns)
	}

	drops := r.Group("/drops")
	{
		drops.POST("", h.Drop.PostDrop)
		drops.POST("/purchase", h.Drop.PostPurchase)
	}

	if h.Reward != nil {
		r.POST("/rewards/draw", h.Reward.PostDraw)
	}

	users := r.Group("/users")
	{
		users.GET("/:id/collection", h.Collection.GetCollection)
		users.POST("/:id/sync", h.Collection.PostSync)
	}

	return r
}
