package controller

import (
	"errors"
	"net/http"

	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondServiceError maps service sentinels onto HTTP responses. Anything
// unrecognized is logged and reported as a 500 without detail.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUnauthorized):
		util.Unauthorized(c)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(c)
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(c)
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrPackageNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		util.NotFound(c)
	case errors.Is(err, util.ErrEmailRegistered):
		util.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrPayloadTooLarge):
		util.PayloadTooLarge(c, "data too large")
	case errors.Is(err, util.ErrPackageNotReady),
		errors.Is(err, util.ErrMalformedStatement):
		util.BadRequest(c, err.Error())
	case errors.Is(err, util.ErrTransientStorage):
		util.Error(c, http.StatusServiceUnavailable, "temporarily unavailable, retry")
	default:
		util.LogInternalError(c, err)
	}
}
