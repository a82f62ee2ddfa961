package repository

import (
	"context"
	"time"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

// Ensure records a lesson completion exactly once per (user, lesson).
// Concurrent triggers from activities finishing near-simultaneously collapse
// into a single row via the conflict clause.
func (r *CompletionRepository) Ensure(ctx context.Context, userID, lessonID uint) error {
	completion := &model.LessonCompletion{
		UserID:      userID,
		LessonID:    lessonID,
		CompletedAt: time.Now().UTC(),
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(completion).Error
}

func (r *CompletionRepository) Exists(ctx context.Context, userID, lessonID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonCompletion{}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Count(&count).Error
	return count > 0, err
}

// CompletedLessonIDs returns the subset of lessonIDs the user has completed.
func (r *CompletionRepository) CompletedLessonIDs(ctx context.Context, userID uint, lessonIDs []uint) (map[uint]bool, error) {
	if len(lessonIDs) == 0 {
		return map[uint]bool{}, nil
	}
	var completions []model.LessonCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&completions).Error
	if err != nil {
		return nil, err
	}

	done := make(map[uint]bool, len(completions))
	for _, c := range completions {
		done[c.LessonID] = true
	}
	return done, nil
}
