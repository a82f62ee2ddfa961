package app

import (
	"lms_content_backend/docs"
	"lms_content_backend/internal/config"
	"lms_content_backend/internal/middleware"
	"lms_content_backend/internal/model"
	"lms_content_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Check)

	// Public routes.
	public := router.Group("/api")
	{
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	// Authenticated learner routes.
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/courses", c.course.List)
		api.GET("/courses/:id", c.course.Get)
		api.POST("/courses/:id/enroll", c.course.Enroll)
		api.GET("/courses/:id/progress", c.course.Progress)

		scorm := api.Group("/scorm")
		{
			scorm.POST("/lessons/:lessonID/launch", c.runtime.Launch)
			scorm.POST("/attempts/:attemptID", c.runtime.Call)
		}

		h5p := api.Group("/h5p")
		{
			h5p.POST("/activities/:activityID/xapi", c.statement.Ingest)
			h5p.GET("/activities/:activityID/user-data", c.userData.Get)
			h5p.POST("/activities/:activityID/user-data", c.userData.Save)
		}

		api.GET("/content/:packageID/*filepath", c.content.Serve)
	}

	// Staff routes.
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin, model.Teacher))
	{
		admin.POST("/packages", c.pkg.Upload)
		admin.GET("/packages", c.pkg.List)
		admin.POST("/packages/:id/extract", c.pkg.ReExtract)
		admin.GET("/packages/:id/progress", c.pkg.Progress)
		admin.DELETE("/packages/:id", c.pkg.Delete)

		admin.POST("/courses", c.course.Create)
		admin.POST("/courses/:id/lessons", c.course.AddLesson)
		admin.POST("/lessons/:id/activities", c.course.AddActivity)
	}
}
