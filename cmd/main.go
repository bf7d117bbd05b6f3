package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/fintrack/auth-service/config"
	"github.com/fintrack/auth-service/db"
	"github.com/fintrack/auth-service/internal/auth/handler"
	repo "github.com/fintrack/auth-service/internal/auth/repository/postgres"
	"github.com/fintrack/auth-service/internal/auth/revocation"
	"github.com/fintrack/auth-service/internal/auth/service"
	"github.com/fintrack/auth-service/internal/jobs"
	"github.com/fintrack/auth-service/pkg/constant"
)

func main() {
	cfg := config.Load()
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer dbPool.Close()

	var registry revocation.Registry = revocation.NewMemory(constant.BlacklistHighWaterMark)
	if cfg.RedisAddr != "" {
		redisClient, err := db.NewRedisClient(ctx, cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			logrus.WithError(err).Fatal("redis connection failed")
		}
		defer redisClient.Close()
		registry = revocation.NewRedis(redisClient)
		logrus.Info("using redis-backed revocation registry")
	}

	userRepo := repo.NewRepository(dbPool)
	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	userService := service.NewUserService(userRepo, tokenService, registry, cfg)
	authHandler := handler.NewAuthHandler(userService)
	authMiddleware := handler.NewAuthMiddleware(tokenService, registry, userRepo)

	sweeper := jobs.NewSweeper(registry, userRepo, time.Duration(cfg.SweepIntervalMin)*time.Minute)
	sweeper.Start(ctx)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, authMiddleware)

	go func() {
		<-ctx.Done()
		logrus.Info("shutting down")
		_ = app.Shutdown()
	}()

	logrus.WithField("port", cfg.Port).Info("auth service listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
