package controller

import (
	"io"
	"strconv"

	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// Statements larger than this are junk, not telemetry.
const maxStatementBytes = 1 << 20

type StatementController struct {
	StatementService *service.StatementService
}

func NewStatementController(statementService *service.StatementService) *StatementController {
	return &StatementController{StatementService: statementService}
}

// Ingest godoc
// @Summary Record an xAPI statement against an H5P activity
// @Tags h5p
// @Accept json
// @Produce json
// @Param activityID path int true "package id of the activity"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/h5p/activities/{activityID}/xapi [post]
func (ctrl *StatementController) Ingest(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	activityID, err := strconv.ParseUint(c.Param("activityID"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid activity id")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStatementBytes+1))
	if err != nil {
		util.BadRequest(c, "unreadable body")
		return
	}
	if len(raw) > maxStatementBytes {
		util.PayloadTooLarge(c, "statement too large")
		return
	}

	attempt, err := ctrl.StatementService.Ingest(c.Request.Context(), claims.UserID, uint(activityID), raw)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, gin.H{
		"attemptId":        attempt.ID,
		"completionStatus": attempt.CompletionStatus,
		"successStatus":    attempt.SuccessStatus,
	})
}
