package controller

import (
	"strconv"

	"lms_content_backend/internal/model"
	"lms_content_backend/internal/service"
	"lms_content_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService     *service.CourseService
	CompletionService *service.CompletionService
}

func NewCourseController(courseService *service.CourseService, completionService *service.CompletionService) *CourseController {
	return &CourseController{
		CourseService:     courseService,
		CompletionService: completionService,
	}
}

type createCourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Create godoc
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Param body body createCourseRequest true "course"
// @Success 201 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/courses [post]
func (ctrl *CourseController) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	course, err := ctrl.CourseService.CreateCourse(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Created(c, course)
}

// List godoc
// @Summary List courses
// @Tags courses
// @Produce json
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/courses [get]
func (ctrl *CourseController) List(c *gin.Context) {
	courses, err := ctrl.CourseService.ListCourses(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, courses)
}

// Get godoc
// @Summary Fetch a course with its lessons
// @Tags courses
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/courses/{id} [get]
func (ctrl *CourseController) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid course id")
		return
	}

	course, err := ctrl.CourseService.GetCourse(c.Request.Context(), uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, course)
}

type addLessonRequest struct {
	Title     string           `json:"title" binding:"required"`
	Kind      model.LessonKind `json:"kind" binding:"required,oneof=scorm h5p"`
	PackageID *uint            `json:"packageId"`
	Position  int              `json:"position"`
	Live      bool             `json:"live"`
}

// AddLesson godoc
// @Summary Add a lesson to a course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "course id"
// @Param body body addLessonRequest true "lesson"
// @Success 201 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/courses/{id}/lessons [post]
func (ctrl *CourseController) AddLesson(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid course id")
		return
	}
	var req addLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	lesson, err := ctrl.CourseService.AddLesson(c.Request.Context(), uint(id), req.Title, req.Kind, req.PackageID, req.Position, req.Live)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Created(c, lesson)
}

type addActivityRequest struct {
	PackageID uint `json:"packageId" binding:"required"`
	Position  int  `json:"position"`
}

// AddActivity godoc
// @Summary Link an H5P package into a lesson
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "lesson id"
// @Param body body addActivityRequest true "activity"
// @Success 201 {object} util.Response
// @Security BearerAuth
// @Router /api/admin/lessons/{id}/activities [post]
func (ctrl *CourseController) AddActivity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid lesson id")
		return
	}
	var req addActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	activity, err := ctrl.CourseService.AddActivity(c.Request.Context(), uint(id), req.PackageID, req.Position)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Created(c, activity)
}

// Enroll godoc
// @Summary Enroll the current user in a course
// @Tags courses
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/courses/{id}/enroll [post]
func (ctrl *CourseController) Enroll(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid course id")
		return
	}

	enrollment, err := ctrl.CourseService.Enroll(c.Request.Context(), claims.UserID, uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, enrollment)
}

// Progress godoc
// @Summary Report the current user's progress in a course
// @Tags courses
// @Produce json
// @Param id path int true "course id"
// @Success 200 {object} util.Response
// @Security BearerAuth
// @Router /api/courses/{id}/progress [get]
func (ctrl *CourseController) Progress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid course id")
		return
	}

	progress, err := ctrl.CompletionService.Progress(c.Request.Context(), claims.UserID, uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	util.Success(c, progress)
}
