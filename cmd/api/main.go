package main

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	_ "github.com/tracekit/harbox-api/api/swagger"
	"github.com/tracekit/harbox-api/internal/handler"
	"github.com/tracekit/harbox-api/internal/repository"
	"github.com/tracekit/harbox-api/internal/router"
	"github.com/tracekit/harbox-api/internal/service"
	"github.com/tracekit/harbox-api/pkg/cache"
	"github.com/tracekit/harbox-api/pkg/config"
	"github.com/tracekit/harbox-api/pkg/database"
	"github.com/tracekit/harbox-api/pkg/logger"
	"github.com/tracekit/harbox-api/pkg/storage"
)

// @title Harbox API
// @version 0.1.0
// @description HAR capture upload backend with token-pair sessions
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, login throttle disabled", "error", err)
		redisClient = nil
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}

	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)
	files := repository.NewFileRepository(db)
	throttle := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	tokenSvc := service.NewTokenService(users, tokens, logr, service.TokenConfig{
		Secret:          cfg.Auth.Secret,
		VerificationTTL: cfg.Auth.VerificationTTL,
		RefreshTTL:      cfg.Auth.RefreshTTL,
	})
	authSvc := service.NewAuthService(users, tokenSvc, throttle, metricsSvc, validate, logr, service.AuthServiceConfig{
		BcryptCost:          cfg.Auth.BcryptCost,
		ThrottleEnabled:     cfg.Throttle.Enabled,
		ThrottleMaxAttempts: cfg.Throttle.MaxAttempts,
		ThrottleWindow:      cfg.Throttle.Window,
	})
	userSvc := service.NewUserService(users, logr)
	fileSvc := service.NewFileService(files, users, uploadStore, cfg.Uploads, logr)

	r := router.New(router.Deps{
		Config:  cfg,
		Logger:  logr,
		DB:      db,
		Tokens:  tokenSvc,
		Metrics: metricsSvc,
		Auth:    handler.NewAuthHandler(authSvc, tokenSvc, cfg.Auth),
		Files:   handler.NewFileHandler(fileSvc),
		Admin:   handler.NewAdminHandler(userSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
