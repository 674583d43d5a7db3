package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fanserve/media-api/presentation/controllers/download"
)

func DownloadRoutes(router *gin.RouterGroup, controller download.DownloadController) {
	router.GET("/d/:token", controller.Down)
	router.HEAD("/d/:token", controller.Down)
}

func HealthRoute(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
