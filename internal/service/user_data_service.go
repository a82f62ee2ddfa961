package service

import (
	"context"
	"errors"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/internal/util"

	"gorm.io/gorm"
)

// UserDataService stores per-user resume state for H5P content, keyed by
// data type and sub-content id within an attempt.
type UserDataService struct {
	DB             *gorm.DB
	Config         *config.Config
	AttemptRepo    *repository.AttemptRepository
	UserDataRepo   *repository.UserDataRepository
	PackageRepo    *repository.PackageRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewUserDataService(db *gorm.DB, cfg *config.Config) *UserDataService {
	return &UserDataService{
		DB:             db,
		Config:         cfg,
		AttemptRepo:    repository.NewAttemptRepository(db),
		UserDataRepo:   repository.NewUserDataRepository(db),
		PackageRepo:    repository.NewPackageRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
	}
}

func (s *UserDataService) authorize(ctx context.Context, userID, packageID uint) error {
	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil {
		return err
	}
	if pkg.Kind != model.PackageH5P {
		return util.ErrPackageNotFound
	}

	lessons, err := s.LessonRepo.ContainingPackage(ctx, packageID)
	if err != nil {
		return err
	}
	for i := range lessons {
		if !lessons[i].Live {
			continue
		}
		enrolled, err := s.EnrollmentRepo.IsEnrolled(ctx, userID, lessons[i].CourseID)
		if err != nil {
			return err
		}
		if enrolled {
			return nil
		}
	}
	return util.ErrNotEnrolled
}

// Get fetches stored state. Reads never create an attempt; a user who has
// not touched the content simply has no state. The second return reports
// whether state exists.
func (s *UserDataService) Get(ctx context.Context, userID, packageID uint, dataType string, subContentID int) (string, bool, error) {
	if err := s.authorize(ctx, userID, packageID); err != nil {
		return "", false, err
	}

	attempt, err := s.AttemptRepo.FindByUserPackage(ctx, userID, packageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	record, err := s.UserDataRepo.Get(ctx, attempt.ID, dataType, subContentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.Value, true, nil
}

// Save upserts state, creating the attempt if this is the user's first
// touch. The H5P client sends the literal "0" to clear a slot.
func (s *UserDataService) Save(ctx context.Context, userID, packageID uint, dataType string, subContentID int, data string) error {
	if len(data) > s.Config.Runtime.UserDataMaxBytes {
		return util.ErrPayloadTooLarge
	}
	if err := s.authorize(ctx, userID, packageID); err != nil {
		return err
	}

	attempt, err := s.AttemptRepo.GetOrCreate(ctx, userID, packageID)
	if err != nil {
		return err
	}

	if data == "0" {
		return repository.WithRetry(s.Config.Database.Retry, func() error {
			return s.UserDataRepo.Delete(ctx, attempt.ID, dataType, subContentID)
		})
	}
	return repository.WithRetry(s.Config.Database.Retry, func() error {
		return s.UserDataRepo.Upsert(ctx, attempt.ID, dataType, subContentID, data)
	})
}
