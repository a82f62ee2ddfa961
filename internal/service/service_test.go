package service

import (
	"path/filepath"
	"testing"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/pkg/database"
	"lms_content_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Retry: config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		},
		Storage: config.StorageConfig{
			Type:        "local",
			LocalPath:   t.TempDir(),
			ContentPath: "lms_content",
			UploadPath:  "lms_packages",
			MaxUploadMB: 64,
		},
		Runtime: config.RuntimeConfig{UserDataMaxBytes: 65536},
		Gateway: config.GatewayConfig{
			CacheControl: map[string]string{
				"default":   "private, max-age=60",
				"text/html": "no-cache",
				"image/*":   "public, max-age=604800",
			},
			RedirectPrefixes: []string{"audio/", "video/"},
			URLCacheSeconds:  300,
		},
	}
}

// seedLearner builds the minimum graph for runtime tests: a user enrolled
// in a course whose single live lesson launches the given package.
func seedLearner(t *testing.T, db *gorm.DB, pkg *model.Package) (*model.User, *model.Lesson) {
	t.Helper()

	user := &model.User{Name: "Ada Learner", Email: "ada@example.com", Role: model.Student}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	course := &model.Course{Title: "Intro"}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}

	kind := model.LessonScorm
	var pkgRef *uint
	if pkg.Kind == model.PackageH5P {
		kind = model.LessonH5P
	} else {
		pkgRef = &pkg.ID
	}
	lesson := &model.Lesson{
		CourseID:  course.ID,
		Title:     "Lesson 1",
		Kind:      kind,
		PackageID: pkgRef,
		Live:      true,
	}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	if pkg.Kind == model.PackageH5P {
		link := &model.LessonActivity{LessonID: lesson.ID, PackageID: pkg.ID}
		if err := db.Create(link).Error; err != nil {
			t.Fatalf("create activity link: %v", err)
		}
	}

	enrollment := &model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}
	if err := db.Create(enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	return user, lesson
}
