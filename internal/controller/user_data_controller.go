package controller

import (
	"strconv"

	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserDataController struct {
	UserDataService *service.UserDataService
}

func NewUserDataController(userDataService *service.UserDataService) *UserDataController {
	return &UserDataController{UserDataService: userDataService}
}

func userDataParams(c *gin.Context) (packageID uint, dataType string, subContentID int, ok bool) {
	id, err := strconv.ParseUint(c.Param("activityID"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid activity id")
		return
	}
	dataType = c.Query("dataType")
	if dataType == "" {
		util.BadRequest(c, "missing dataType")
		return
	}
	subContentID = 0
	if raw := c.Query("subContentId"); raw != "" {
		subContentID, err = strconv.Atoi(raw)
		if err != nil {
			util.BadRequest(c, "invalid subContentId")
			return
		}
	}
	return uint(id), dataType, subContentID, true
}

// Get godoc
// @Summary Fetch saved resume state for an H5P activity
// @Description Returns data:false when the user has no saved state.
// @Tags h5p
// @Produce json
// @Param activityID path int true "package id of the activity"
// @Param dataType query string true "state slot, usually state"
// @Param subContentId query int false "sub-content id, 0 for the root"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/h5p/activities/{activityID}/user-data [get]
func (ctrl *UserDataController) Get(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	packageID, dataType, subContentID, ok := userDataParams(c)
	if !ok {
		return
	}

	value, found, err := ctrl.UserDataService.Get(c.Request.Context(), claims.UserID, packageID, dataType, subContentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	// The H5P client expects this exact shape, not the API envelope.
	if !found {
		c.JSON(200, gin.H{"success": true, "data": false})
		return
	}
	c.JSON(200, gin.H{"success": true, "data": value})
}

// Save godoc
// @Summary Store resume state for an H5P activity
// @Description The form value "0" clears the slot.
// @Tags h5p
// @Accept x-www-form-urlencoded
// @Produce json
// @Param activityID path int true "package id of the activity"
// @Param dataType query string true "state slot"
// @Param subContentId query int false "sub-content id"
// @Param data formData string true "serialized state"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/h5p/activities/{activityID}/user-data [post]
func (ctrl *UserDataController) Save(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	packageID, dataType, subContentID, ok := userDataParams(c)
	if !ok {
		return
	}

	data, present := c.GetPostForm("data")
	if !present {
		util.BadRequest(c, "missing data field")
		return
	}

	err := ctrl.UserDataService.Save(c.Request.Context(), claims.UserID, packageID, dataType, subContentID, data)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(200, gin.H{"success": true})
}
