package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"inventory-sync-engine/internal/cache"
	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/clients/clover"
	"inventory-sync-engine/internal/clients/ebay"
	"inventory-sync-engine/internal/clients/facebook"
	"inventory-sync-engine/internal/clients/shopify"
	"inventory-sync-engine/internal/clients/square"
	"inventory-sync-engine/internal/clients/whatnot"
	"inventory-sync-engine/internal/config"
	"inventory-sync-engine/internal/database"
	"inventory-sync-engine/internal/dispatch"
	"inventory-sync-engine/internal/encryption"
	"inventory-sync-engine/internal/handlers"
	"inventory-sync-engine/internal/jobs"
	"inventory-sync-engine/internal/middleware"
	"inventory-sync-engine/internal/models"
	"inventory-sync-engine/internal/onboarding"
	"inventory-sync-engine/internal/store"
	"inventory-sync-engine/internal/webhook"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logrus.WithError(err).Warn("auto-migration failed")
	}
	logrus.Info("database models migrated")

	redisClient := connectRedis(cfg)
	cacheLayer := cache.NewLayer(redisClient)

	encryptor, err := encryption.NewCredentialEncryptor(context.Background(), cfg.GCPProjectID)
	if err != nil {
		logrus.WithError(err).Warn("credential encryptor unavailable")
	}

	registry := clients.Registry{
		models.PlatformShopify:  shopify.NewAdapter(),
		models.PlatformSquare:   square.NewAdapter(),
		models.PlatformClover:   clover.NewAdapter(),
		models.PlatformEbay:     ebay.NewAdapter(),
		models.PlatformFacebook: facebook.NewAdapter(),
		models.PlatformWhatnot:  whatnot.NewAdapter(),
	}

	gateway := store.NewGateway(db, cacheLayer)

	tracker := dispatch.NewProgressTracker()
	scanJob := jobs.NewScanJob(registry, gateway.Connections, gateway.Products, gateway.Inventory, gateway.Mappings, gateway.Activity, encryptor, nil, tracker)
	syncJob := jobs.NewSyncJob(registry, gateway.Connections, gateway.Products, gateway.Inventory, gateway.Mappings, gateway.Activity, encryptor, nil, tracker)
	reconcileJob := jobs.NewReconcileJob(registry, gateway.Connections, gateway.Products, gateway.Inventory, gateway.Mappings, gateway.Activity, encryptor, nil, tracker)

	dispatchCfg := dispatch.DefaultConfig(cfg.NATSURL)
	dispatchCfg.ThresholdReqPerSec = float64(cfg.ThresholdReqPerSec)
	dispatchCfg.ScaleDownIdleSecs = cfg.ScaleDownIdleSecs
	dispatcher := dispatch.NewDispatcher(dispatchCfg, gateway.Connections, tracker, scanJob, syncJob, reconcileJob)
	defer dispatcher.Stop()

	coordinator := onboarding.NewCoordinator(gateway.Connections, dispatcher)
	// the job bodies and the coordinator reference each other's completion
	// callbacks through the StatusCoordinator interface, wired here once
	// both sides exist, avoiding an import cycle between jobs and onboarding.
	scanJob.SetCoordinator(coordinator)
	syncJob.SetCoordinator(coordinator)
	reconcileJob.SetCoordinator(coordinator)

	webhookDispatcher := webhook.NewDispatcher(registry, gateway.Connections, gateway.Webhooks, gateway.Activity, encryptor)

	healthHandler := handlers.NewHealthHandler()
	connectionHandler := handlers.NewConnectionHandler(gateway.Connections, coordinator)
	syncHandler := handlers.NewSyncHandler(gateway.Connections, coordinator, dispatcher)
	webhookHandler := handlers.NewWebhookHandler(webhookDispatcher)

	router := setupRouter(cfg, healthHandler, connectionHandler, syncHandler, webhookHandler)

	logrus.WithFields(logrus.Fields{"port": cfg.Port, "environment": cfg.Environment}).Info("inventory sync engine starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("failed to start server")
	}
}

func connectRedis(cfg *config.Config) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse Redis URL, falling back to localhost:6379")
		redisOpts = &redis.Options{Addr: "localhost:6379"}
	}
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("failed to connect to Redis, caching disabled")
		return nil
	}
	logrus.Info("redis connected successfully")
	return redisClient
}

func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	connectionHandler *handlers.ConnectionHandler,
	syncHandler *handlers.SyncHandler,
	webhookHandler *handlers.WebhookHandler,
) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.SecurityHeaders())

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{
			"https://*.tesserix.app",
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	router.Use(middleware.CORS(origins))
	router.Use(middleware.UserMiddleware())

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireUserID())
	{
		v1.GET("/platform-connections", connectionHandler.List)
		v1.DELETE("/platform-connections/:id", connectionHandler.Disconnect)

		syncGroup := v1.Group("/sync")
		{
			syncGroup.POST("/connections/:id/start-scan", syncHandler.StartScan)
			syncGroup.GET("/connections/:id/scan-summary", syncHandler.ScanSummary)
			syncGroup.GET("/connections/:id/mapping-suggestions", syncHandler.MappingSuggestions)
			syncGroup.POST("/connections/:id/confirm-mappings", syncHandler.ConfirmMappings)
			syncGroup.GET("/connections/:id/draft-mappings", syncHandler.GetDraftMappings)
			syncGroup.PUT("/connections/:id/draft-mappings", syncHandler.PutDraftMappings)
			syncGroup.GET("/connections/:id/sync-preview", syncHandler.SyncPreview)
			syncGroup.POST("/connections/:id/activate-sync", syncHandler.ActivateSync)
			syncGroup.GET("/jobs/:jobId/progress", syncHandler.JobProgress)
			syncGroup.POST("/connection/:id/reconcile", syncHandler.Reconcile)
		}
	}

	webhooks := router.Group("/webhook")
	{
		webhooks.POST("/shopify", webhookHandler.HandleShopify)
		webhooks.POST("/shopify/:connectionId", webhookHandler.HandleShopify)
		webhooks.POST("/square", webhookHandler.HandleSquare)
		webhooks.POST("/square/:connectionId", webhookHandler.HandleSquare)
		webhooks.POST("/clover", webhookHandler.HandleClover)
		webhooks.POST("/clover/:connectionId", webhookHandler.HandleClover)
		webhooks.POST("/ebay", webhookHandler.HandleEbay)
		webhooks.POST("/ebay/:connectionId", webhookHandler.HandleEbay)
		webhooks.POST("/facebook", webhookHandler.HandleFacebook)
		webhooks.POST("/facebook/:connectionId", webhookHandler.HandleFacebook)
		webhooks.POST("/whatnot", webhookHandler.HandleWhatnot)
		webhooks.POST("/whatnot/:connectionId", webhookHandler.HandleWhatnot)
	}

	return router
}
