package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/controller"
	"lms_content_backend/internal/service"
	"lms_content_backend/pkg/configwatcher"
	"lms_content_backend/pkg/database"
	"lms_content_backend/pkg/logger"
	"lms_content_backend/pkg/monitoring"
	"lms_content_backend/pkg/security"
	"lms_content_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	pkg        *service.PackageService
	completion *service.CompletionService
	runtime    *service.RuntimeService
	statement  *service.StatementService
	userData   *service.UserDataService
	content    *service.ContentService
	course     *service.CourseService
}

type controllers struct {
	auth      *controller.AuthController
	pkg       *controller.PackageController
	runtime   *controller.RuntimeController
	statement *controller.StatementController
	userData  *controller.UserDataController
	content   *controller.ContentController
	course    *controller.CourseController
	health    *controller.HealthController
}

func (a *App) initServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(db, cfg)
	s.pkg = service.NewPackageService(db, cfg, s.storage, rdb)
	s.completion = service.NewCompletionService(db, cfg)
	s.runtime = service.NewRuntimeService(db, cfg, s.completion)
	s.statement = service.NewStatementService(db, cfg, s.completion)
	s.userData = service.NewUserDataService(db, cfg)
	s.content = service.NewContentService(db, cfg, s.storage, rdb)
	s.course = service.NewCourseService(db, cfg)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		pkg:       controller.NewPackageController(s.pkg),
		runtime:   controller.NewRuntimeController(s.runtime),
		statement: controller.NewStatementController(s.statement),
		userData:  controller.NewUserDataController(s.userData),
		content:   controller.NewContentController(s.content),
		course:    controller.NewCourseController(s.course, s.completion),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	svcs := app.initServices(cfg, db, rdb)
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("lms-content-runtime", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, ctrls, cfg)

	if cfg.Storage.Type == "local" || cfg.Storage.Type == "" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	// Gateway cache and redirect rules apply on config change without a
	// restart.
	go configwatcher.WatchConfig("configs/config.yaml", func(updated *config.Config) {
		svcs.content.UpdatePolicy(updated)
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
