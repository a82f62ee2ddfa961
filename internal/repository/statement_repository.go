package repository

import (
	"context"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
)

type StatementRepository struct {
	DB *gorm.DB
}

func NewStatementRepository(db *gorm.DB) *StatementRepository {
	return &StatementRepository{DB: db}
}

// Append adds one record to the statement log. The log is append-only;
// there is deliberately no update or delete here.
func (r *StatementRepository) Append(ctx context.Context, record *model.StatementRecord) error {
	return r.DB.WithContext(ctx).Create(record).Error
}

func (r *StatementRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]model.StatementRecord, error) {
	var records []model.StatementRecord
	err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

func (r *StatementRepository) CountByAttempt(ctx context.Context, attemptID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.StatementRecord{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	return count, err
}
