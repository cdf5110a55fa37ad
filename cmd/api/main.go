package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/study-plan-api/api/swagger"
	"github.com/noah-isme/study-plan-api/internal/event"
	"github.com/noah-isme/study-plan-api/internal/handler"
	internalmiddleware "github.com/noah-isme/study-plan-api/internal/middleware"
	"github.com/noah-isme/study-plan-api/internal/planner"
	"github.com/noah-isme/study-plan-api/internal/repository"
	"github.com/noah-isme/study-plan-api/internal/service"
	"github.com/noah-isme/study-plan-api/pkg/cache"
	"github.com/noah-isme/study-plan-api/pkg/config"
	"github.com/noah-isme/study-plan-api/pkg/database"
	"github.com/noah-isme/study-plan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-plan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-plan-api/pkg/middleware/requestid"
	"github.com/noah-isme/study-plan-api/pkg/storage"
)

// @title Study Plan API
// @version 1.0.0
// @description Generates exam study schedules, tracks session progress and exports plans
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := planner.LoadCatalog(cfg.Planner.CatalogPath)
	if err != nil {
		logr.Fatal("failed to load topic catalog", zap.Error(err))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var planStore service.StudyPlanStore
	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
		planStore = repository.NewStudyPlanRepository(db)
		checks["postgres"] = db.PingContext
	} else {
		logr.Warn("database disabled; study plans are kept in memory")
		planStore = repository.NewMemoryStudyPlanRepository()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Planner.ProgressCacheTTL, logr, redisClient != nil)

	var sink event.Publisher = event.NewLogPublisher(logr)
	if cfg.Events.Enabled {
		amqpSink, err := event.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logr)
		if err != nil {
			logr.Fatal("failed to connect event broker", zap.Error(err))
		}
		sink = amqpSink
	}
	dispatcher := event.NewDispatcher(sink, event.DispatcherConfig{
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	}, logr)
	dispatcher.Start(context.Background())

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	tokenSvc := service.NewTokenService(validate, logr, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	planSvc := service.NewStudyPlanService(
		planStore,
		planner.NewAssembler(catalog, nil),
		dispatcher,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.StudyPlanConfig{ProgressTTL: cfg.Planner.ProgressCacheTTL},
	)
	exportSvc := service.NewExportService(
		planStore,
		files,
		signer,
		service.ExportRenderers{},
		dispatcher,
		metricsSvc,
		validate,
		logr,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
	)

	planHandler := handler.NewStudyPlanHandler(planSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/download", exportHandler.Download)
	if cfg.Env != config.EnvProduction {
		api.POST("/auth/token", handler.NewTokenHandler(tokenSvc).Issue)
	}

	plans := api.Group("/plans/me", internalmiddleware.JWT(tokenSvc))
	plans.POST("", planHandler.Generate)
	plans.GET("", planHandler.Get)
	plans.DELETE("", planHandler.Delete)
	plans.GET("/progress", planHandler.Progress)
	plans.PATCH("/sessions/:index", planHandler.UpdateSession)
	plans.POST("/exports", exportHandler.Export)

	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if err := dispatcher.Close(); err != nil {
		logr.Error("event dispatcher close failed", zap.Error(err))
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup()
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
