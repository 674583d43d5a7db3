package dependency

import (
	"fmt"

	"github.com/fanserve/media-api/application/usecases/media"
	"github.com/fanserve/media-api/infrastructure/moderation"
	"github.com/fanserve/media-api/infrastructure/transcode"
	"go.uber.org/zap"
)

func (c *Container) initUseCases() error {
	var scanner media.ExplicitScanner
	if c.Settings.Get().S3Configured() {
		probe, err := moderation.NewProbe(c.Settings.Get())
		if err != nil {
			c.Logger.Warn("moderation probe unavailable", zap.Error(err))
		} else {
			scanner = probe
		}
	}

	uc, err := media.New(media.Deps{
		Repo:     c.FileRepo,
		Selector: c.StorageSelector,
		Local:    c.LocalStorage,
		Bus:      c.Bus,
		Video:    transcode.NewVideo(),
		Audio:    transcode.NewAudio(),
		Image:    transcode.NewImage(),
		Scanner:  scanner,
		Signer:   c.Signer,
		Settings: c.Settings,
		Logger:   c.Logger,

		BaseURL:    c.Config.Server.BaseURL,
		SignExpiry: c.Config.SignExpiry(),
	})
	if err != nil {
		return fmt.Errorf("error wiring media pipeline: %w", err)
	}
	c.MediaUC = uc

	c.initBackgroundJobs()

	return nil
}
