package repository

import (
	"context"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) FindByID(ctx context.Context, id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).
		Preload("Activities").
		Preload("Package").
		First(&lesson, id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// LiveByCourse returns the course's live lessons in page order. Only live
// lessons participate in course completion.
func (r *LessonRepository) LiveByCourse(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Preload("Activities").
		Where("course_id = ? AND live = ?", courseID, true).
		Order("position ASC, id ASC").
		Find(&lessons).Error
	return lessons, err
}

// ContainingPackage finds the lessons a package participates in: scorm
// lessons that launch it, and h5p lessons that embed it as an activity.
func (r *LessonRepository) ContainingPackage(ctx context.Context, packageID uint) ([]model.Lesson, error) {
	var direct []model.Lesson
	err := r.DB.WithContext(ctx).
		Preload("Activities").
		Where("package_id = ?", packageID).
		Find(&direct).Error
	if err != nil {
		return nil, err
	}

	var links []model.LessonActivity
	err = r.DB.WithContext(ctx).
		Where("package_id = ?", packageID).
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(direct))
	lessons := direct
	for i := range direct {
		seen[direct[i].ID] = true
	}
	for _, link := range links {
		if seen[link.LessonID] {
			continue
		}
		lesson, err := r.FindByID(ctx, link.LessonID)
		if err != nil {
			return nil, err
		}
		seen[lesson.ID] = true
		lessons = append(lessons, *lesson)
	}
	return lessons, nil
}
