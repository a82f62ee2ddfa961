package repository

import (
	"context"

	"lms_content_backend/internal/model"

	"gorm.io/gorm"
)

type PackageRepository struct {
	DB *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{DB: db}
}

func (r *PackageRepository) Create(ctx context.Context, pkg *model.Package) error {
	return r.DB.WithContext(ctx).Create(pkg).Error
}

func (r *PackageRepository) Save(ctx context.Context, pkg *model.Package) error {
	return r.DB.WithContext(ctx).Save(pkg).Error
}

func (r *PackageRepository) FindByID(ctx context.Context, id uint) (*model.Package, error) {
	var pkg model.Package
	err := r.DB.WithContext(ctx).First(&pkg, id).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *PackageRepository) List(ctx context.Context, kind model.PackageKind) ([]model.Package, error) {
	var pkgs []model.Package
	q := r.DB.WithContext(ctx)
	if kind != "" {
		if kind.IsScorm() {
			q = q.Where("kind IN ?", []model.PackageKind{model.PackageScorm12, model.PackageScorm2004})
		} else {
			q = q.Where("kind = ?", kind)
		}
	}
	err := q.Order("id DESC").Find(&pkgs).Error
	return pkgs, err
}

func (r *PackageRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Package{}, id).Error
}
