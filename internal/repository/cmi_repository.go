package repository

import (
	"context"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CMIRepository struct {
	DB *gorm.DB
}

func NewCMIRepository(db *gorm.DB) *CMIRepository {
	return &CMIRepository{DB: db}
}

func (r *CMIRepository) Get(ctx context.Context, attemptID uint, key string) (*model.CMIEntry, error) {
	var entry model.CMIEntry
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ? AND element = ?", attemptID, key).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *CMIRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]model.CMIEntry, error) {
	var entries []model.CMIEntry
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Find(&entries).Error
	return entries, err
}

// UpsertAll writes a batch of entries inside tx, last write wins per key.
// Callers wrap this in the Commit transaction so a partial batch is never
// visible.
func (r *CMIRepository) UpsertAll(tx *gorm.DB, attemptID uint, values map[string]string) error {
	for key, value := range values {
		entry := model.CMIEntry{
			AttemptID: attemptID,
			Key:       key,
			Value:     value,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "element"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return err
		}
	}
	return nil
}
