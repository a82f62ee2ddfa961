package controller

import (
	"strconv"

	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RuntimeController struct {
	RuntimeService *service.RuntimeService
}

func NewRuntimeController(runtimeService *service.RuntimeService) *RuntimeController {
	return &RuntimeController{RuntimeService: runtimeService}
}

// Launch godoc
// @Summary Launch a SCORM lesson for the current user
// @Tags scorm
// @Produce json
// @Param lessonID path int true "lesson id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/scorm/lessons/{lessonID}/launch [post]
func (ctrl *RuntimeController) Launch(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	lessonID, err := strconv.ParseUint(c.Param("lessonID"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid lesson id")
		return
	}

	info, err := ctrl.RuntimeService.Launch(c.Request.Context(), claims.UserID, uint(lessonID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, info)
}

type apiCallRequest struct {
	Method     string   `json:"method" binding:"required"`
	Parameters []string `json:"parameters"`
}

type apiCallResponse struct {
	Result    string `json:"result"`
	ErrorCode string `json:"errorCode"`
}

// Call godoc
// @Summary Invoke one SCORM API method against an attempt
// @Description Accepts both 1.2 (LMSInitialize...) and 2004 (Initialize...) method names.
// @Tags scorm
// @Accept json
// @Produce json
// @Param attemptID path int true "attempt id"
// @Param body body apiCallRequest true "method invocation"
// @Success 200 {object} apiCallResponse
// @Security BearerAuth
// @Router /api/scorm/attempts/{attemptID} [post]
func (ctrl *RuntimeController) Call(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	attemptID, err := strconv.ParseUint(c.Param("attemptID"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid attempt id")
		return
	}

	var req apiCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	param1, param2 := "", ""
	if len(req.Parameters) > 0 {
		param1 = req.Parameters[0]
	}
	if len(req.Parameters) > 1 {
		param2 = req.Parameters[1]
	}

	result, errCode, err := ctrl.RuntimeService.Call(c.Request.Context(), claims.UserID, uint(attemptID), req.Method, param1, param2)
	if err != nil {
		if err == util.ErrUnknownMethod {
			util.BadRequest(c, "unknown API method "+req.Method)
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(200, apiCallResponse{Result: result, ErrorCode: errCode})
}
