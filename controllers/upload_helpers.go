package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

// saveUpload stores an image and writes the error response itself on failure.
func saveUpload(ctx *gin.Context, storage uploads.Storage, folder string, header *multipart.FileHeader) (string, bool) {
	ref, err := storage.Save(ctx.Request.Context(), folder, header)
	switch {
	case err == nil:
		return ref, true
	case errors.Is(err, uploads.ErrNotImage):
		utils.Error(ctx, http.StatusBadRequest, 40010, "Uploaded file must be an image")
	case errors.Is(err, uploads.ErrTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40011, "Uploaded file is too large")
	default:
		utils.Logger.Error("save upload failed", zap.String("folder", folder), zap.Error(err))
		utils.ServerError(ctx, 50010, "failed to store upload", err)
	}
	return "", false
}

// removeUpload deletes a stored image, logging instead of failing the request.
func removeUpload(ctx *gin.Context, storage uploads.Storage, ref string) {
	if ref == "" {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), 10*time.Second)
	defer cancel()
	if err := storage.Remove(rctx, ref); err != nil {
		utils.Logger.Warn("remove upload failed", zap.String("ref", ref), zap.Error(err))
	}
}
