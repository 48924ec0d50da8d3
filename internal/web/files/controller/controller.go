// Package controller exposes the files service over HTTP.
package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/fingenius-compliance/internal/web/files/model"
	"github.com/Laisky/fingenius-compliance/internal/web/files/service"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/auth"
)

// FileField is the multipart field carrying a document.
const FileField = "file"

// UploadResponse body of a successful upload.
type UploadResponse struct {
	Message string      `json:"message"`
	File    *model.File `json:"file"`
}

// Controller files handlers
type Controller struct {
	svc *service.Service
}

// New create new files controller
func New(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

// Upload POST /files/upload
func (c *Controller) Upload(ctx *gin.Context) {
	logger := gmw.GetLogger(ctx)

	// authentication is checked before the body is looked at
	orgID := auth.OrganizationID(ctx)
	if orgID.IsZero() {
		apierr.Abort(ctx, apierr.New(apierr.CodeUnauthenticated, "Authentication required"))
		return
	}

	in := new(service.UploadInput)
	header, err := ctx.FormFile(FileField)
	switch {
	case err == nil:
		fp, err := header.Open()
		if err != nil {
			apierr.Abort(ctx, errors.Wrap(err, "open uploaded file"))
			return
		}
		defer func() {
			if err := fp.Close(); err != nil {
				logger.Warn("close uploaded file", zap.Error(err))
			}
		}()

		in.Body = fp
		in.Filename = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
		in.Size = header.Size
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		in = nil
	default:
		apierr.Abort(ctx, apierr.Wrap(err, apierr.CodeValidation, "Invalid multipart form"))
		return
	}

	file, err := c.svc.Upload(ctx, orgID, in)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, UploadResponse{
		Message: "File uploaded successfully",
		File:    file,
	})
}

// List GET /files
func (c *Controller) List(ctx *gin.Context) {
	files, err := c.svc.List(ctx)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, files)
}

// ListByOrganization GET /files/organization/:id
func (c *Controller) ListByOrganization(ctx *gin.Context) {
	orgID, err := apierr.ParseObjectID(ctx.Param("id"), "organization")
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	files, err := c.svc.ListByOrganization(ctx, orgID)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, files)
}

// Delete DELETE /files/:id
func (c *Controller) Delete(ctx *gin.Context) {
	id, err := apierr.ParseObjectID(ctx.Param("id"), "file")
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	if err = c.svc.Delete(ctx, id); err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}
