package controller

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/batgear/batstore-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// ImagePresigner issues direct-to-bucket upload URLs
type ImagePresigner interface {
	PresignProductImage(ctx context.Context, filename, contentType string, size int64) (*storage.PresignedUpload, error)
}

type UploadController struct {
	storage ImagePresigner
}

func NewUploadController(storage ImagePresigner) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type PresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"omitempty,min=0"`
}

// GenerateProductImageURL returns a presigned PUT URL for a product image (admin)
// POST /api/products/upload-url
func (ctrl *UploadController) GenerateProductImageURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	upload, err := ctrl.storage.PresignProductImage(c.Request.Context(), req.Filename, req.ContentType, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrContentTypeNotAllowed):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, err.Error())
		case errors.Is(err, storage.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Images must be 5MB or smaller")
		default:
			log.Error("Failed to generate presigned URL", err, map[string]interface{}{
				"filename":     req.Filename,
				"content_type": req.ContentType,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to prepare upload")
		}
		return
	}

	log.Info("Presigned URL generated", map[string]interface{}{
		"key": upload.Key,
	})
	respond(c, http.StatusOK, "", upload)
}
