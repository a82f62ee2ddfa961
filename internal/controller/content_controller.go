package controller

import (
	"io"
	"strconv"

	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// Serve godoc
// @Summary Deliver one file from an extracted package
// @Description Media types may 302 to the storage backend; everything else streams through.
// @Tags content
// @Param packageID path int true "package id"
// @Param filepath path string true "path inside the package"
// @Success 200
// @Security BearerAuth
// @Router /api/content/{packageID}/{filepath} [get]
func (ctrl *ContentController) Serve(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	packageID, err := strconv.ParseUint(c.Param("packageID"), 10, 32)
	if err != nil {
		util.NotFound(c)
		return
	}

	res, err := ctrl.ContentService.Resolve(c.Request.Context(), claims.UserID, claims.Role, uint(packageID), c.Param("filepath"))
	if err != nil {
		// Enrollment failures included: the gateway does not reveal whether
		// the file exists.
		if err == util.ErrNotEnrolled {
			util.Forbidden(c)
			return
		}
		util.NotFound(c)
		return
	}

	// Content is rendered in frames by the player page, never by other
	// origins.
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Header("Content-Security-Policy", "frame-ancestors 'self'")
	if res.CacheControl != "" {
		c.Header("Cache-Control", res.CacheControl)
	}

	if res.Redirect {
		c.Redirect(302, res.URL)
		return
	}

	defer res.Body.Close()
	c.Header("Content-Type", res.ContentType)
	c.Status(200)
	if _, err := io.Copy(c.Writer, res.Body); err != nil {
		// Headers are gone; nothing to do but drop the connection.
		c.Abort()
	}
}
