package service

import (
	"context"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/internal/util"

	"gorm.io/gorm"
)

// CourseService manages the course catalog and enrollments.
type CourseService struct {
	DB             *gorm.DB
	Config         *config.Config
	CourseRepo     *repository.CourseRepository
	LessonRepo     *repository.LessonRepository
	PackageRepo    *repository.PackageRepository
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewCourseService(db *gorm.DB, cfg *config.Config) *CourseService {
	return &CourseService{
		DB:             db,
		Config:         cfg,
		CourseRepo:     repository.NewCourseRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		PackageRepo:    repository.NewPackageRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
	}
}

func (s *CourseService) CreateCourse(ctx context.Context, title, description string) (*model.Course, error) {
	course := &model.Course{Title: title, Description: description}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uint) (*model.Course, error) {
	return s.CourseRepo.FindByID(ctx, id)
}

func (s *CourseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.CourseRepo.List(ctx)
}

// AddLesson attaches a lesson to a course. SCORM lessons must reference a
// SCORM package; H5P lessons start empty and gain activities separately.
func (s *CourseService) AddLesson(ctx context.Context, courseID uint, title string, kind model.LessonKind, packageID *uint, position int, live bool) (*model.Lesson, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	if kind == model.LessonScorm {
		if packageID == nil {
			return nil, util.ErrPackageNotFound
		}
		pkg, err := s.PackageRepo.FindByID(ctx, *packageID)
		if err != nil {
			return nil, err
		}
		if !pkg.Kind.IsScorm() {
			return nil, util.ErrPackageNotFound
		}
	}

	lesson := &model.Lesson{
		CourseID:  courseID,
		Title:     title,
		Kind:      kind,
		PackageID: packageID,
		Position:  position,
		Live:      live,
	}
	if err := s.DB.WithContext(ctx).Create(lesson).Error; err != nil {
		return nil, err
	}
	return lesson, nil
}

// AddActivity links an H5P package into an H5P lesson.
func (s *CourseService) AddActivity(ctx context.Context, lessonID, packageID uint, position int) (*model.LessonActivity, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Kind != model.LessonH5P {
		return nil, util.ErrLessonNotFound
	}
	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.Kind != model.PackageH5P {
		return nil, util.ErrPackageNotFound
	}

	activity := &model.LessonActivity{
		LessonID:  lessonID,
		PackageID: packageID,
		Position:  position,
	}
	if err := s.DB.WithContext(ctx).Create(activity).Error; err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *CourseService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.EnrollmentRepo.GetOrCreate(ctx, userID, courseID)
}
