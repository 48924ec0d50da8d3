// Package controller exposes the organization service over HTTP.
package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/fingenius-compliance/internal/web/organization/dto"
	"github.com/Laisky/fingenius-compliance/internal/web/organization/model"
	"github.com/Laisky/fingenius-compliance/internal/web/organization/service"
	"github.com/Laisky/fingenius-compliance/library/apierr"
	"github.com/Laisky/fingenius-compliance/library/auth"
)

// PhotoField is the multipart field carrying a profile photo.
const PhotoField = "profilePhoto"

// Controller organization handlers
type Controller struct {
	svc *service.Service
}

// New create new organization controller
func New(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func writeOrganization(ctx *gin.Context, status int, org *model.Organization) {
	out, err := dto.NewOrganization(org)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(status, out)
}

func writeSession(ctx *gin.Context, status int, msg string, sess *service.Session) {
	out, err := dto.NewOrganization(sess.Organization)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(status, dto.SessionResponse{
		Message:      msg,
		Token:        sess.Token,
		Organization: out,
	})
}

// Register POST /register
func (c *Controller) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apierr.Abort(ctx, apierr.Wrap(err, apierr.CodeValidation, "Registration failed"))
		return
	}

	sess, err := c.svc.Register(ctx, req)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	writeSession(ctx, http.StatusCreated, "Organization registered successfully", sess)
}

// Login POST /login
func (c *Controller) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apierr.Abort(ctx, apierr.Wrap(err, apierr.CodeValidation, "Email and password are required"))
		return
	}

	sess, err := c.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	writeSession(ctx, http.StatusOK, "Login successful", sess)
}

// Profile GET /profile and GET /organization, the caller's own organization.
func (c *Controller) Profile(ctx *gin.Context) {
	org, err := c.svc.FindByID(ctx, auth.OrganizationID(ctx))
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	writeOrganization(ctx, http.StatusOK, org)
}

// GetByID GET /organizations/:id
func (c *Controller) GetByID(ctx *gin.Context) {
	id, err := apierr.ParseObjectID(ctx.Param("id"), "organization")
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	org, err := c.svc.FindByID(ctx, id)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	writeOrganization(ctx, http.StatusOK, org)
}

// UpdatePhoto POST /organization/photo
func (c *Controller) UpdatePhoto(ctx *gin.Context) {
	logger := gmw.GetLogger(ctx)
	header, err := ctx.FormFile(PhotoField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			apierr.Abort(ctx, apierr.New(apierr.CodeNoFile, "No file uploaded"))
			return
		}
		apierr.Abort(ctx, apierr.Wrap(err, apierr.CodeValidation, "Invalid multipart form"))
		return
	}

	fp, err := header.Open()
	if err != nil {
		apierr.Abort(ctx, errors.Wrap(err, "open uploaded photo"))
		return
	}
	defer func() {
		if err := fp.Close(); err != nil {
			logger.Warn("close uploaded photo", zap.Error(err))
		}
	}()

	org, err := c.svc.UpdateProfilePhoto(ctx, auth.OrganizationID(ctx), &service.PhotoInput{
		Body:        fp,
		Size:        header.Size,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	out, err := dto.NewOrganization(org)
	if err != nil {
		apierr.Abort(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":         "Profile photo updated successfully",
		"profileImageUrl": org.ProfileImageURL,
		"organization":    out,
	})
}
