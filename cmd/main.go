package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/config"
	"Storyworld-App/internal/domain/model"
	domainrepo "Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/domain/service"
	"Storyworld-App/internal/handler"
	"Storyworld-App/internal/infrastructure/database"
	"Storyworld-App/internal/infrastructure/firestore"
	"Storyworld-App/internal/infrastructure/reward"
	"Storyworld-App/internal/infrastructure/sqlite"
	"Storyworld-App/internal/logging"
	"Storyworld-App/internal/observability"
	"Storyworld-App/internal/repository"
	"Storyworld-App/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ 設定の読み込みに失敗: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFile)

	if err := model.ValidateRarityTable(model.RarityTable); err != nil {
		logger.Fatalf("❌ レアリティ表が不正です: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ローカル永続化（タイルキャッシュ・コレクション）
	sqliteClient, err := sqlite.NewSQLiteClient(cfg.SQLitePath)
	if err != nil {
		logger.Fatalf("❌ SQLiteの初期化に失敗: %v", err)
	}
	defer sqliteClient.Close()
	if err := sqliteClient.InitSchema(ctx); err != nil {
		logger.Fatalf("❌ スキーマの作成に失敗: %v", err)
	}
	logger.Infof("✅ SQLite opened: %s", cfg.SQLitePath)

	tileStore, err := repository.NewSQLiteTileCacheRepository(sqliteClient, logger)
	if err != nil {
		logger.Fatalf("❌ タイルキャッシュの初期化に失敗: %v", err)
	}
	defer tileStore.Close()

	checks := map[string]handler.HealthCheck{"sqlite": sqliteClient.HealthCheck}

	// リモートのコレクション保存先（任意）
	localCollections := repository.NewSQLiteCollectionRepository(sqliteClient, logger)
	var remoteCollections domainrepo.CollectionRepository
	if cfg.FirestoreProjectID != "" {
		fsClient, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.GoogleCredentialFile, logger)
		if err != nil {
			logger.Fatalf("❌ Firestoreクライアント初期化失敗: %v", err)
		}
		defer fsClient.Close()
		remoteCollections = repository.NewFirestoreCollectionRepository(fsClient.GetClient(), logger)
	} else {
		logger.Warn("⚠️ STORYWORLD_FIRESTORE_PROJECT_ID未設定: コレクションはローカルのみ")
	}

	// 動画カタログ
	var catalog domainrepo.VideoCatalogRepository
	switch cfg.CatalogBackend {
	case config.CatalogBackendPostgres:
		pgClient, err := database.NewPostgreSQLClientWithRetry(cfg.PostgresDSN, 5, 2*time.Second, logger)
		if err != nil {
			logger.Fatalf("❌ PostgreSQL接続失敗: %v", err)
		}
		defer pgClient.Close()
		catalog = repository.NewPostgresVideosRepository(pgClient)
		checks["postgres"] = pgClient.HealthCheck
	case config.CatalogBackendSupabase:
		sbClient, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			logger.Fatalf("❌ Supabaseクライアント初期化失敗: %v", err)
		}
		catalog = repository.NewSupabaseVideosRepository(sbClient)
		checks["supabase"] = func(context.Context) error { return sbClient.HealthCheck() }
	default:
		logger.Warn("⚠️ 動画カタログ未設定: 報酬抽選は常に在庫なしになります")
		catalog = repository.NewMemoryVideosRepository()
	}
	catalogProvider := service.NewCatalogRewardProvider(catalog, nil)

	// ドロップ時の抽選はリモート関数が設定されていればそちらを使う
	var rewards domainrepo.RewardProvider = catalogProvider
	if cfg.RewardFunctionURL != "" {
		rewards = reward.NewFunctionClient(cfg.RewardFunctionURL)
		logger.Infof("🎁 報酬抽選関数: %s", cfg.RewardFunctionURL)
	}

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		logger.Fatalf("❌ メトリクスの登録に失敗: %v", err)
	}

	mapper, err := service.NewTileMapper(cfg.Zoom)
	if err != nil {
		logger.Fatalf("❌ ズームレベルが不正です: %v", err)
	}
	generator := service.NewCircleGenerator(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.SpawnProbability)

	orchestrator := service.NewDropOrchestrator(tileStore, localCollections, rewards, metrics, logger, service.DropOrchestratorConfig{
		NearThresholdMeters: cfg.NearThresholdM,
		RewardTimeout:       cfg.RewardTimeout,
	})
	sweeper := service.NewCooldownSweeper(tileStore, cfg.SweepInterval, metrics, logger)

	tileUseCase := usecase.NewTileLoadUseCase(mapper, generator, tileStore, metrics, logger, cfg.TileRadius)
	dropUseCase := usecase.NewDropUseCase(orchestrator)
	collectionUseCase := usecase.NewCollectionUseCase(localCollections, remoteCollections, logger)

	router := handler.NewRouter(handler.Handlers{
		Health:     handler.NewHealthHandler(checks),
		Tile:       handler.NewTileHandler(tileUseCase, sweeper),
		Drop:       handler.NewDropHandler(dropUseCase),
		Reward:     handler.NewRewardHandler(catalogProvider),
		Collection: handler.NewCollectionHandler(collectionUseCase),
	}, metrics)

	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("🚀 Storyworld-App server starting on :%s (zoom %d, radius %d)", cfg.Port, cfg.Zoom, cfg.TileRadius)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("❌ サーバー起動失敗: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 シャットダウン中...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("❌ シャットダウンに失敗")
	}
}
