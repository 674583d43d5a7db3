package dependency

import (
	"context"
	"fmt"

	"github.com/fanserve/media-api/application/usecases/media"
	"github.com/fanserve/media-api/domain/repository"
	"github.com/fanserve/media-api/infrastructure/config"
	"github.com/fanserve/media-api/infrastructure/events"
	"github.com/fanserve/media-api/infrastructure/jobs"
	"github.com/fanserve/media-api/infrastructure/logger"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/fanserve/media-api/infrastructure/sign"
	"github.com/fanserve/media-api/infrastructure/storage"
	"github.com/fanserve/media-api/presentation/controllers/download"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Settings    *settings.Store
	RedisClient *redis.Client
	Bus         events.Bus
	Signer      sign.Signer

	FileRepo        repository.FileRepository
	LocalStorage    *storage.LocalDisk
	StorageSelector *storage.Selector

	MediaUC media.UseCase

	OrphanCleanupJob *jobs.OrphanCleanupJob

	DownloadController download.DownloadController

	ctx    context.Context
	cancel context.CancelFunc
}

func NewContainer() (*Container, error) {
	c := &Container{}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.Config = config.GetConfig()

	loggerInstance, err := newLogger(c.Config)
	if err != nil {
		return nil, fmt.Errorf("error initializing logger: %w", err)
	}
	c.Logger = loggerInstance

	c.Logger.Info("Initializing media API dependencies")

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("error initializing infrastructure: %w", err)
	}

	if err := c.initUseCases(); err != nil {
		return nil, fmt.Errorf("error initializing use cases: %w", err)
	}

	c.initControllers()

	c.Logger.Info("All dependencies initialized successfully")

	return c, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.IsProduction() {
		return logger.NewProductionLogger()
	}
	return logger.NewDevelopmentLogger()
}
