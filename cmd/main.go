package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcane-tl/asset-service/internal/auth"
	"github.com/arcane-tl/asset-service/internal/cache"
	"github.com/arcane-tl/asset-service/internal/config"
	"github.com/arcane-tl/asset-service/internal/database"
	"github.com/arcane-tl/asset-service/internal/handlers"
	"github.com/arcane-tl/asset-service/internal/middlewares"
	"github.com/arcane-tl/asset-service/internal/reconcile"
	"github.com/arcane-tl/asset-service/internal/recordstore"
	"github.com/arcane-tl/asset-service/internal/routes"
	"github.com/arcane-tl/asset-service/internal/server"
	"github.com/arcane-tl/asset-service/internal/services"
	"github.com/arcane-tl/asset-service/internal/storage"
	"github.com/arcane-tl/asset-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	logger, err := utils.NewLogger(dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// Mongo-backed record store
	db, mc, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatalf("mongo connect: %v", err)
	}
	records := recordstore.NewMongoStore(db.Collection(cfg.Mongo.Collection))

	// Redis for the URL cache and the upload limiter
	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatalf("redis connect: %v", err)
	}

	// S3-backed object store
	objects, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint, cfg.S3.PublicRead, cfg.PresignTTL, logger)
	if err != nil {
		logger.Fatalf("s3 init: %v", err)
	}

	reconciler := reconcile.New(records, objects, reconcile.Options{
		VerifyExisting:       cfg.Reconcile.VerifyExisting,
		AbortOnDeleteFailure: cfg.Reconcile.AbortOnDeleteFailure,
	}, logger)
	urls := cache.NewRedisURLCache(rdb, "asset:url:")
	assetSvc := services.NewAssetService(records, objects, reconciler, urls, cfg.URLCacheTTL, logger)
	userSvc := services.NewUserService(records, logger)

	verifier, err := auth.NewJWTVerifier(cfg.JWT.PublicKeyPath)
	if err != nil {
		logger.Fatalf("jwt init: %v", err)
	}

	ipLimiter := middlewares.NewIPRateLimiter(cfg.RateLimit.IPPerMinute, logger)
	uploadLimiter := middlewares.NewRateLimiter(rdb, "asset:ratelimit:upload", cfg.RateLimit.UploadPerMin, time.Minute)

	app := server.New(cfg, logger, ipLimiter)
	assetH := handlers.NewAssetHandler(assetSvc, userSvc, logger)
	userH := handlers.NewUserHandler(userSvc, logger)
	routes.Setup(app, verifier, assetH, userH, uploadLimiter.MiddlewareByKey(func(c *fiber.Ctx) string {
		if uid, ok := c.Locals("user_id").(string); ok {
			return uid
		}
		return c.IP()
	}))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Infof("starting asset service on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatalf("listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = app.Shutdown()
	_ = rdb.Close()
	_ = mc.Disconnect(timeoutCtx)
	logger.Info("shutdown completed")
}
