package download

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fanserve/media-api/application/usecases/media"
	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/sign"
	"github.com/fanserve/media-api/infrastructure/storage"
)

type DownloadController interface {
	Down(ctx *gin.Context)
}

type downloadController struct {
	mediaUseCase media.UseCase
	signer       sign.Signer
	localStorage *storage.LocalDisk
}

func NewDownloadController(mediaUseCase media.UseCase, signer sign.Signer, localStorage *storage.LocalDisk) DownloadController {
	return &downloadController{
		mediaUseCase: mediaUseCase,
		signer:       signer,
		localStorage: localStorage,
	}
}

// Down streams a locally stored file addressed by a signed token. The token
// is the only credential; there is no session check on this route.
func (c *downloadController) Down(ctx *gin.Context) {
	token := ctx.Param("token")
	if token == "" {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "token is required",
		})
		return
	}

	fileID, err := c.signer.Verify(token)
	if err != nil {
		if errors.Is(err, sign.ErrSignExpired) {
			ctx.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "link_expired",
				Message: "download link has expired",
			})
			return
		}
		ctx.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_token",
			Message: "download token is invalid",
		})
		return
	}

	id, err := model.ParseID(fileID)
	if err != nil {
		ctx.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_token",
			Message: "download token is invalid",
		})
		return
	}

	record, err := c.mediaUseCase.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "file not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "fetch_failed",
			Message: "failed to load file record",
		})
		return
	}

	fullPath, ok := c.localStorage.Resolve(record.AbsolutePath)
	if !ok {
		fullPath, ok = c.localStorage.Resolve(record.Path)
	}
	if !ok {
		ctx.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "file not found",
		})
		return
	}

	mimeType := record.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, record.Name))
	ctx.Header("Content-Type", mimeType)
	ctx.File(fullPath)
}
