package dependency

import (
	"github.com/fanserve/media-api/presentation/controllers/download"
)

func (c *Container) initControllers() {
	c.DownloadController = download.NewDownloadController(c.MediaUC, c.Signer, c.LocalStorage)
}
