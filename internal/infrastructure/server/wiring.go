package server

import (
	"context"
	"fmt"

	"github.com/eyetracktask/eyetrack/internal/adapters/cache"
	"github.com/eyetracktask/eyetrack/internal/adapters/repository"
	"github.com/eyetracktask/eyetrack/internal/adapters/storage"
	"github.com/eyetracktask/eyetrack/internal/application/services"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/database"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// Build wires repositories, cache, storage and services over db. The
// returned cleanup closes what Build opened.
func Build(ctx context.Context, cfg *config.Config, db *database.DB, appLogger *logger.Logger) (Dependencies, func(), error) {
	cleanup := func() {}
	checks := map[string]HealthChecker{"database": db}

	var boardCache ports.CacheRepository
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis, appLogger.WithComponent("cache"))
		if err != nil {
			return Dependencies{}, cleanup, fmt.Errorf("failed to connect to redis: %w", err)
		}
		boardCache = redisCache
		checks["redis"] = redisCache
		cleanup = func() {
			if err := redisCache.Close(); err != nil {
				appLogger.Warnw("Failed to close redis", "error", err)
			}
		}
	}

	bucket, err := storage.New(cfg.Storage.Root, cfg.App.SiteURL)
	if err != nil {
		cleanup()
		return Dependencies{}, func() {}, fmt.Errorf("failed to open storage: %w", err)
	}

	userRepo := repository.NewUserRepository(db.DB)
	authRepo := repository.NewAuthRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	projectRepo := repository.NewProjectRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	subTaskRepo := repository.NewSubTaskRepository(db.DB)

	metrics := NewMetrics()
	metrics.RegisterDB(db.DB.DB, cfg.Database.Name)

	authService := services.NewAuthService(
		userRepo, authRepo, profileRepo, projectRepo,
		services.NewLogMailer(appLogger.WithComponent("mailer")),
		cfg.JWT, cfg.App.SiteURL, appLogger.WithComponent("auth"),
	)
	boardService := services.NewBoardService(
		projectRepo, taskRepo, subTaskRepo,
		boardCache, cfg.Redis.BoardTTL, appLogger.WithComponent("board"),
	)
	boardService.SetRecorder(metrics)
	profileService := services.NewProfileService(
		profileRepo, userRepo, projectRepo, boardService, bucket, appLogger.WithComponent("profile"),
	)

	return Dependencies{
		Auth:    authService,
		Board:   boardService,
		Profile: profileService,
		Storage: bucket,
		Metrics: metrics,
		Checks:  checks,
	}, cleanup, nil
}
