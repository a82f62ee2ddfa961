package repository

import (
	"context"
	"time"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// GetOrCreate returns the attempt for (userID, packageID), creating it on
// first touch. The insert ignores unique-index conflicts so two concurrent
// first touches converge on the same row instead of racing check-then-insert.
func (r *AttemptRepository) GetOrCreate(ctx context.Context, userID, packageID uint) (*model.Attempt, error) {
	now := time.Now().UTC()
	attempt := &model.Attempt{
		UserID:           userID,
		PackageID:        packageID,
		StartedAt:        now,
		LastAccessed:     now,
		CompletionStatus: model.CompletionNotAttempted,
		SuccessStatus:    model.SuccessUnknown,
		SessionState:     model.SessionNotInitialized,
		LastError:        "0",
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "package_id"}},
			DoNothing: true,
		}).
		Create(attempt).Error
	if err != nil {
		return nil, err
	}

	// Re-read: on conflict the insert is a no-op and attempt.ID stays zero.
	var out model.Attempt
	err = r.DB.WithContext(ctx).
		Where("user_id = ? AND package_id = ?", userID, packageID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindByUserPackage(ctx context.Context, userID, packageID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND package_id = ?", userID, packageID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) Save(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Save(attempt).Error
}

func (r *AttemptRepository) TouchLastAccessed(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ?", id).
		Update("last_accessed", time.Now().UTC()).Error
}

// Updates applies a column map to the attempt row.
func (r *AttemptRepository) Updates(ctx context.Context, id uint, values map[string]interface{}) error {
	return r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ?", id).
		Updates(values).Error
}

// MarkCompleted promotes completion_status to completed without ever
// regressing an existing terminal state. The guard lives in the WHERE
// clause, not application logic, so concurrent writers cannot interleave
// a downgrade.
func (r *AttemptRepository) MarkCompleted(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND completion_status <> ?", id, model.CompletionCompleted).
		Update("completion_status", model.CompletionCompleted).Error
}

// CompletedPackageIDs returns which of packageIDs the user has finished.
// The filter matches Attempt.Done: completed, or a terminal success
// status, so failed attempts count.
func (r *AttemptRepository) CompletedPackageIDs(ctx context.Context, userID uint, packageIDs []uint) (map[uint]bool, error) {
	if len(packageIDs) == 0 {
		return map[uint]bool{}, nil
	}
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND package_id IN ? AND (completion_status = ? OR success_status IN ?)",
			userID, packageIDs, model.CompletionCompleted,
			[]model.SuccessStatus{model.SuccessPassed, model.SuccessFailed}).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	done := make(map[uint]bool, len(attempts))
	for _, a := range attempts {
		done[a.PackageID] = true
	}
	return done, nil
}

// ListByUserPackages returns the user's attempts for a set of packages.
func (r *AttemptRepository) ListByUserPackages(ctx context.Context, userID uint, packageIDs []uint) ([]model.Attempt, error) {
	if len(packageIDs) == 0 {
		return nil, nil
	}
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND package_id IN ?", userID, packageIDs).
		Find(&attempts).Error
	return attempts, err
}
