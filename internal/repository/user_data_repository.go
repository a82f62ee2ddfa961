package repository

import (
	"context"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserDataRepository struct {
	DB *gorm.DB
}

func NewUserDataRepository(db *gorm.DB) *UserDataRepository {
	return &UserDataRepository{DB: db}
}

func (r *UserDataRepository) Get(ctx context.Context, attemptID uint, dataType string, subContentID int) (*model.ContentUserData, error) {
	var row model.ContentUserData
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ? AND data_type = ? AND sub_content_id = ?",
			attemptID, dataType, subContentID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UserDataRepository) Upsert(ctx context.Context, attemptID uint, dataType string, subContentID int, value string) error {
	row := model.ContentUserData{
		AttemptID:    attemptID,
		DataType:     dataType,
		SubContentID: subContentID,
		Value:        value,
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "attempt_id"}, {Name: "data_type"}, {Name: "sub_content_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *UserDataRepository) Delete(ctx context.Context, attemptID uint, dataType string, subContentID int) error {
	return r.DB.WithContext(ctx).
		Where("attempt_id = ? AND data_type = ? AND sub_content_id = ?",
			attemptID, dataType, subContentID).
		Delete(&model.ContentUserData{}).Error
}
