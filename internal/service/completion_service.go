package service

import (
	"context"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// completionRule answers which packages a lesson requires before it counts
// as completed. One implementation per lesson kind.
type completionRule interface {
	RequiredPackageIDs(lesson *model.Lesson) []uint
}

// scormLessonRule: the lesson is complete when its single bound package
// has a finished attempt.
type scormLessonRule struct{}

func (scormLessonRule) RequiredPackageIDs(lesson *model.Lesson) []uint {
	if lesson.PackageID == nil {
		return nil
	}
	return []uint{*lesson.PackageID}
}

// h5pLessonRule: every linked activity package needs a finished attempt.
type h5pLessonRule struct{}

func (h5pLessonRule) RequiredPackageIDs(lesson *model.Lesson) []uint {
	ids := make([]uint, 0, len(lesson.Activities))
	for _, act := range lesson.Activities {
		ids = append(ids, act.PackageID)
	}
	return ids
}

var completionRules = map[model.LessonKind]completionRule{
	model.LessonScorm: scormLessonRule{},
	model.LessonH5P:   h5pLessonRule{},
}

// LessonProgress is one row of a course progress report.
type LessonProgress struct {
	LessonID  uint             `json:"lessonId"`
	Title     string           `json:"title"`
	Kind      model.LessonKind `json:"kind"`
	Completed bool             `json:"completed"`
}

// CourseProgress summarizes a user's position in a course.
type CourseProgress struct {
	CourseID        uint             `json:"courseId"`
	Lessons         []LessonProgress `json:"lessons"`
	CompletedCount  int              `json:"completedCount"`
	TotalCount      int              `json:"totalCount"`
	CourseCompleted bool             `json:"courseCompleted"`
}

// CompletionService rolls finished attempts up into lesson and course
// completion. All roll-up writes are monotonic, so replays and races
// cannot regress progress.
type CompletionService struct {
	DB             *gorm.DB
	Config         *config.Config
	LessonRepo     *repository.LessonRepository
	CompletionRepo *repository.CompletionRepository
	AttemptRepo    *repository.AttemptRepository
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
}

func NewCompletionService(db *gorm.DB, cfg *config.Config) *CompletionService {
	return &CompletionService{
		DB:             db,
		Config:         cfg,
		LessonRepo:     repository.NewLessonRepository(db),
		CompletionRepo: repository.NewCompletionRepository(db),
		AttemptRepo:    repository.NewAttemptRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
		CourseRepo:     repository.NewCourseRepository(db),
	}
}

// OnAttemptDone re-evaluates every lesson that contains the attempt's
// package, for the attempt's user only.
func (s *CompletionService) OnAttemptDone(ctx context.Context, attempt *model.Attempt) error {
	lessons, err := s.LessonRepo.ContainingPackage(ctx, attempt.PackageID)
	if err != nil {
		return err
	}
	for i := range lessons {
		if err := s.evaluateLesson(ctx, attempt.UserID, &lessons[i]); err != nil {
			logger.Log.Warn("lesson completion evaluation failed",
				zap.Uint("lesson_id", lessons[i].ID),
				zap.Uint("user_id", attempt.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// evaluateLesson records the lesson completion if every required package
// has a finished attempt, then re-checks the course.
func (s *CompletionService) evaluateLesson(ctx context.Context, userID uint, lesson *model.Lesson) error {
	done, err := s.lessonDone(ctx, userID, lesson)
	if err != nil || !done {
		return err
	}

	err = repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.CompletionRepo.Ensure(ctx, userID, lesson.ID)
	})
	if err != nil {
		return err
	}

	logger.Log.Info("lesson completed",
		zap.Uint("lesson_id", lesson.ID),
		zap.Uint("user_id", userID))
	return s.evaluateCourse(ctx, userID, lesson.CourseID)
}

func (s *CompletionService) lessonDone(ctx context.Context, userID uint, lesson *model.Lesson) (bool, error) {
	rule, ok := completionRules[lesson.Kind]
	if !ok {
		return false, nil
	}
	required := rule.RequiredPackageIDs(lesson)
	if len(required) == 0 {
		// A lesson with no content cannot complete itself.
		return false, nil
	}

	done, err := s.AttemptRepo.CompletedPackageIDs(ctx, userID, required)
	if err != nil {
		return false, err
	}
	for _, id := range required {
		if !done[id] {
			return false, nil
		}
	}
	return true, nil
}

// evaluateCourse marks the enrollment completed once every live lesson in
// the course is completed. Hidden lessons never block course completion.
func (s *CompletionService) evaluateCourse(ctx context.Context, userID, courseID uint) error {
	lessons, err := s.LessonRepo.LiveByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if len(lessons) == 0 {
		return nil
	}

	ids := make([]uint, len(lessons))
	for i, lesson := range lessons {
		ids[i] = lesson.ID
	}
	completed, err := s.CompletionRepo.CompletedLessonIDs(ctx, userID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !completed[id] {
			return nil
		}
	}

	err = repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.EnrollmentRepo.MarkCompleted(ctx, userID, courseID)
	})
	if err != nil {
		return err
	}
	logger.Log.Info("course completed",
		zap.Uint("course_id", courseID),
		zap.Uint("user_id", userID))
	return nil
}

// Progress reports per-lesson completion for a user's enrollment.
func (s *CompletionService) Progress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	lessons, err := s.LessonRepo.LiveByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(lessons))
	for i, lesson := range lessons {
		ids[i] = lesson.ID
	}
	completed, err := s.CompletionRepo.CompletedLessonIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	progress := &CourseProgress{CourseID: courseID, TotalCount: len(lessons)}
	for _, lesson := range lessons {
		row := LessonProgress{
			LessonID:  lesson.ID,
			Title:     lesson.Title,
			Kind:      lesson.Kind,
			Completed: completed[lesson.ID],
		}
		if row.Completed {
			progress.CompletedCount++
		}
		progress.Lessons = append(progress.Lessons, row)
	}
	progress.CourseCompleted = progress.TotalCount > 0 && progress.CompletedCount == progress.TotalCount
	return progress, nil
}
