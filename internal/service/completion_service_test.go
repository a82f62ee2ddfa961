package service

import (
	"context"
	"testing"
	"time"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
)

// buildH5PCourse creates one course with an H5P lesson embedding n
// activity packages, plus an enrolled learner.
func buildH5PCourse(t *testing.T, db *gorm.DB, n int) (*model.User, *model.Lesson, []model.Package) {
	t.Helper()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}
	course := &model.Course{Title: "Deck"}
	if err := db.Create(course).Error; err != nil {
		t.Fatal(err)
	}
	lesson := &model.Lesson{CourseID: course.ID, Title: "Activities", Kind: model.LessonH5P, Live: true}
	if err := db.Create(lesson).Error; err != nil {
		t.Fatal(err)
	}

	packages := make([]model.Package, n)
	for i := range packages {
		packages[i] = model.Package{Kind: model.PackageH5P, Title: "Act", MainLibrary: "H5P.X"}
		if err := db.Create(&packages[i]).Error; err != nil {
			t.Fatal(err)
		}
		link := model.LessonActivity{LessonID: lesson.ID, PackageID: packages[i].ID, Position: i}
		if err := db.Create(&link).Error; err != nil {
			t.Fatal(err)
		}
	}

	enrollment := &model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}
	if err := db.Create(enrollment).Error; err != nil {
		t.Fatal(err)
	}
	return user, lesson, packages
}

func finishAttempt(t *testing.T, db *gorm.DB, svc *CompletionService, userID, packageID uint) {
	t.Helper()
	attempt := &model.Attempt{
		UserID:           userID,
		PackageID:        packageID,
		CompletionStatus: model.CompletionCompleted,
	}
	if err := db.Create(attempt).Error; err != nil {
		t.Fatal(err)
	}
	if err := svc.OnAttemptDone(context.Background(), attempt); err != nil {
		t.Fatal(err)
	}
}

func TestH5PLessonRequiresAllActivities(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompletionService(db, newTestConfig(t))
	user, lesson, packages := buildH5PCourse(t, db, 3)

	finishAttempt(t, db, svc, user.ID, packages[0].ID)
	finishAttempt(t, db, svc, user.ID, packages[1].ID)

	var count int64
	db.Model(&model.LessonCompletion{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	if count != 0 {
		t.Fatal("lesson completed before all activities were done")
	}

	finishAttempt(t, db, svc, user.ID, packages[2].ID)
	db.Model(&model.LessonCompletion{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	if count != 1 {
		t.Fatal("lesson not completed after last activity")
	}

	var enrollment model.Enrollment
	if err := db.Where("user_id = ?", user.ID).First(&enrollment).Error; err != nil {
		t.Fatal(err)
	}
	if enrollment.CompletedAt == nil {
		t.Error("course not completed after its only lesson finished")
	}
}

func TestHiddenLessonDoesNotBlockCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompletionService(db, newTestConfig(t))
	user, lesson, packages := buildH5PCourse(t, db, 1)

	// A second, hidden lesson with an untouched package.
	hiddenPkg := &model.Package{Kind: model.PackageH5P, Title: "Draft", MainLibrary: "H5P.Y"}
	if err := db.Create(hiddenPkg).Error; err != nil {
		t.Fatal(err)
	}
	hidden := &model.Lesson{CourseID: lesson.CourseID, Title: "Draft", Kind: model.LessonH5P, Live: false}
	if err := db.Create(hidden).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&model.LessonActivity{LessonID: hidden.ID, PackageID: hiddenPkg.ID}).Error; err != nil {
		t.Fatal(err)
	}

	finishAttempt(t, db, svc, user.ID, packages[0].ID)

	var enrollment model.Enrollment
	if err := db.Where("user_id = ?", user.ID).First(&enrollment).Error; err != nil {
		t.Fatal(err)
	}
	if enrollment.CompletedAt == nil {
		t.Error("hidden lesson blocked course completion")
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompletionService(db, newTestConfig(t))
	user, lesson, packages := buildH5PCourse(t, db, 1)

	finishAttempt(t, db, svc, user.ID, packages[0].ID)

	// Replaying the same finished attempt must not duplicate rows or fail.
	var attempt model.Attempt
	if err := db.Where("user_id = ?", user.ID).First(&attempt).Error; err != nil {
		t.Fatal(err)
	}
	if err := svc.OnAttemptDone(context.Background(), &attempt); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&model.LessonCompletion{}).Where("lesson_id = ?", lesson.ID).Count(&count)
	if count != 1 {
		t.Errorf("lesson completion rows = %d, want 1", count)
	}
}

func TestEmptyLessonNeverCompletes(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompletionService(db, newTestConfig(t))
	user, _, packages := buildH5PCourse(t, db, 1)

	// An empty lesson in the same course holds the course open forever.
	var lesson model.Lesson
	if err := db.First(&lesson).Error; err != nil {
		t.Fatal(err)
	}
	empty := &model.Lesson{CourseID: lesson.CourseID, Title: "Empty", Kind: model.LessonH5P, Live: true}
	if err := db.Create(empty).Error; err != nil {
		t.Fatal(err)
	}

	finishAttempt(t, db, svc, user.ID, packages[0].ID)

	var enrollment model.Enrollment
	if err := db.Where("user_id = ?", user.ID).First(&enrollment).Error; err != nil {
		t.Fatal(err)
	}
	if enrollment.CompletedAt != nil {
		t.Error("course completed despite a live lesson with no content")
	}
}

func TestProgressReport(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompletionService(db, newTestConfig(t))
	user, lesson, packages := buildH5PCourse(t, db, 1)

	progress, err := svc.Progress(context.Background(), user.ID, lesson.CourseID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.CompletedCount != 0 || progress.TotalCount != 1 || progress.CourseCompleted {
		t.Errorf("initial progress = %+v", progress)
	}

	finishAttempt(t, db, svc, user.ID, packages[0].ID)

	progress, err = svc.Progress(context.Background(), user.ID, lesson.CourseID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.CompletedCount != 1 || !progress.CourseCompleted {
		t.Errorf("final progress = %+v", progress)
	}
	if len(progress.Lessons) != 1 || !progress.Lessons[0].Completed {
		t.Errorf("lesson rows = %+v", progress.Lessons)
	}
}
