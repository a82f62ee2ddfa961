package repository

import (
	"context"
	"time"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	enrollment := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(enrollment).Error
	if err != nil {
		return nil, err
	}

	var out model.Enrollment
	err = r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// IsEnrolled is the boolean lookup the completion pipeline gates on.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// MarkCompleted stamps completed_at at most once. The WHERE clause makes the
// write idempotent and monotonic: a second trigger, or a later regression,
// matches zero rows.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, userID, courseID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND completed_at IS NULL", userID, courseID).
		Update("completed_at", time.Now().UTC()).Error
}
