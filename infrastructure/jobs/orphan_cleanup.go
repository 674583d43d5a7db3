package jobs

import (
	"context"
	"time"

	"github.com/fanserve/media-api/application/usecases/media"
	"github.com/fanserve/media-api/domain/repository"
	"github.com/fanserve/media-api/infrastructure/logger"
	"go.uber.org/zap"
)

// OrphanCleanupJob periodically deletes file records that no owner ever
// claimed. Uploads are created unreferenced and gain refs when their owning
// entity is saved; records still unreferenced after the grace period are
// abandoned uploads.
type OrphanCleanupJob struct {
	repo     repository.FileRepository
	media    media.UseCase
	logger   *logger.Logger
	interval time.Duration
	grace    time.Duration
	stopChan chan struct{}
}

func NewOrphanCleanupJob(repo repository.FileRepository, mediaUseCase media.UseCase, logger *logger.Logger, interval, grace time.Duration) *OrphanCleanupJob {
	return &OrphanCleanupJob{
		repo:     repo,
		media:    mediaUseCase,
		logger:   logger,
		interval: interval,
		grace:    grace,
		stopChan: make(chan struct{}),
	}
}

func (j *OrphanCleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Orphan cleanup job started",
		zap.Duration("interval", j.interval),
		zap.Duration("grace", j.grace),
	)

	j.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			j.runCleanup(ctx)
		case <-j.stopChan:
			j.logger.Info("Orphan cleanup job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Orphan cleanup job context cancelled")
			return
		}
	}
}

func (j *OrphanCleanupJob) Stop() {
	close(j.stopChan)
}

func (j *OrphanCleanupJob) runCleanup(ctx context.Context) {
	startTime := time.Now()

	orphans, err := j.repo.FindOrphans(ctx, int64(j.grace.Seconds()))
	if err != nil {
		j.logger.Error("Orphan cleanup job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
		return
	}

	removed := 0
	for _, record := range orphans {
		// Re-checked inside: a ref added between the query and the
		// delete keeps the record alive.
		ok, err := j.media.RemoveIfNotHaveRef(ctx, record.ID)
		if err != nil {
			j.logger.Error("Failed to remove orphaned file",
				zap.String("fileId", record.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			removed++
		}
	}

	j.logger.Info("Orphan cleanup job completed",
		zap.Int("candidates", len(orphans)),
		zap.Int("removed", removed),
		zap.Duration("duration", time.Since(startTime)),
	)
}
