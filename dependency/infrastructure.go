package dependency

import (
	"context"
	"fmt"
	"time"

	"github.com/fanserve/media-api/infrastructure/events"
	"github.com/fanserve/media-api/infrastructure/jobs"
	"github.com/fanserve/media-api/infrastructure/persistence/database"
	"github.com/fanserve/media-api/infrastructure/persistence/repository"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/fanserve/media-api/infrastructure/sign"
	"github.com/fanserve/media-api/infrastructure/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func (c *Container) initInfrastructure() error {
	c.RedisClient = redis.NewClient(&redis.Options{
		Addr:         c.Config.GetRedisAddress(),
		Password:     c.Config.Redis.Password,
		DB:           c.Config.Redis.Db,
		DialTimeout:  c.Config.Redis.DialTimeout,
		ReadTimeout:  c.Config.Redis.ReadTimeout,
		WriteTimeout: c.Config.Redis.WriteTimeout,
		PoolSize:     c.Config.Redis.PoolSize,
		PoolTimeout:  c.Config.Redis.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	if err := c.RedisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("error connecting to redis: %w", err)
	}
	c.Logger.Info("Redis connection established", zap.String("addr", c.Config.GetRedisAddress()))

	if err := database.InitDb(c.Config, c.Logger.Log); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}
	c.Logger.Info("Database connection established")

	c.Settings = settings.NewStore(c.Config)

	local, err := storage.NewLocalDisk(c.Settings)
	if err != nil {
		return fmt.Errorf("error initializing local storage: %w", err)
	}
	c.LocalStorage = local
	c.StorageSelector = storage.NewSelector(local, storage.NewS3(c.Settings))

	c.Bus = events.NewRedisBus(c.RedisClient, c.Logger)
	c.Signer = sign.NewHMACSign([]byte(c.Config.Sign.Secret))

	c.FileRepo = repository.NewFileRepository(database.GetDb())

	return nil
}

func (c *Container) initBackgroundJobs() {
	c.OrphanCleanupJob = jobs.NewOrphanCleanupJob(
		c.FileRepo, c.MediaUC, c.Logger, 6*time.Hour, 24*time.Hour)

	go c.OrphanCleanupJob.Start(c.ctx)
}

// Shutdown releases every held resource. Safe to call once.
func (c *Container) Shutdown() {
	if c.OrphanCleanupJob != nil {
		c.OrphanCleanupJob.Stop()
	}
	c.cancel()

	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			c.Logger.Error("failed to close event bus", zap.Error(err))
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Error("failed to close redis client", zap.Error(err))
		}
	}
	if err := database.CloseDb(); err != nil {
		c.Logger.Error("failed to close database", zap.Error(err))
	}
}
