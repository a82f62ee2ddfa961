package service

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/internal/util"
	"lms_content_backend/pkg/logger"
	"lms_content_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	extractProgressPrefix = "extract_progress:"
	extractProgressTTL    = time.Hour
)

// PackageService owns the package lifecycle: archive upload, extraction
// into the content tree, re-extraction, and deletion of both mirrors.
type PackageService struct {
	DB          *gorm.DB
	Config      *config.Config
	PackageRepo *repository.PackageRepository
	Storage     *StorageService
	Redis       *redis.Client
}

func NewPackageService(db *gorm.DB, cfg *config.Config, storage *StorageService, rdb *redis.Client) *PackageService {
	return &PackageService{
		DB:          db,
		Config:      cfg,
		PackageRepo: repository.NewPackageRepository(db),
		Storage:     storage,
		Redis:       rdb,
	}
}

// UploadPackage stores the raw archive, creates the Package row, and runs
// extraction. The row survives a failed extraction so the archive can be
// re-extracted after the problem is fixed.
func (s *PackageService) UploadPackage(ctx context.Context, uploaderID uint, filename string, file io.Reader, size int64) (*model.Package, error) {
	maxBytes := int64(s.Config.Storage.MaxUploadMB) << 20
	if size > maxBytes {
		return nil, util.ErrPayloadTooLarge
	}

	archivePath := fmt.Sprintf("%s/%s.zip", s.Config.Storage.UploadPath, uuid.New().String())
	if err := s.Storage.Save(ctx, archivePath, io.LimitReader(file, maxBytes), size, "application/zip"); err != nil {
		return nil, err
	}

	pkg := &model.Package{
		Title:       strings.TrimSuffix(path.Base(filename), path.Ext(filename)),
		ArchivePath: archivePath,
		UploaderID:  uploaderID,
	}
	if err := s.PackageRepo.Create(ctx, pkg); err != nil {
		return nil, err
	}

	if err := s.Extract(ctx, pkg); err != nil {
		logger.Log.Error("package extraction failed",
			zap.Uint("package_id", pkg.ID),
			zap.String("archive", archivePath),
			zap.Error(err))
		return pkg, err
	}
	return pkg, nil
}

// Extract unpacks a package's archive into the content tree and fills in
// the manifest-derived fields. It is safe to call again after a failure;
// the previous extraction mirror is replaced wholesale.
func (s *PackageService) Extract(ctx context.Context, pkg *model.Package) error {
	outcome := "ok"
	kindLabel := "unknown"
	defer func() {
		monitoring.ExtractionCounter.WithLabelValues(kindLabel, outcome).Inc()
	}()

	tmp, err := s.stageArchive(ctx, pkg.ArchivePath)
	if err != nil {
		outcome = "error"
		return &util.ExtractionError{Reason: "archive unavailable", Err: err}
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	info, err := tmp.Stat()
	if err != nil {
		outcome = "error"
		return err
	}

	zr, err := zip.NewReader(tmp, info.Size())
	if err != nil {
		outcome = "error"
		return &util.ExtractionError{Reason: "not a zip archive", Err: err}
	}

	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, f)
	}
	if len(entries) == 0 {
		outcome = "error"
		return &util.ExtractionError{Reason: "empty archive", Err: util.ErrEmptyArchive}
	}

	kind, err := detectPackageKind(entries)
	if err != nil {
		outcome = "error"
		return err
	}
	kindLabel = string(kind)

	prefix := fmt.Sprintf("%s/%d", s.Config.Storage.ContentPath, pkg.ID)
	if pkg.ExtractedPath != "" {
		// Replace, never merge: a re-extract must not leave stale files
		// from the previous archive behind.
		s.removeTree(ctx, pkg)
	}

	total := len(entries)
	saved := 0
	for i, entry := range entries {
		clean, err := util.NormalizeContentPath(entry.Name)
		if err != nil {
			// A hostile or sloppy entry is skipped, not fatal; the rest of
			// the archive still extracts.
			logger.Log.Warn("skipping unsafe archive entry",
				zap.Uint("package_id", pkg.ID),
				zap.String("entry", entry.Name))
			s.setProgress(ctx, pkg.ID, fmt.Sprintf("%d/%d", i+1, total))
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			outcome = "error"
			return &util.ExtractionError{Reason: "cannot open entry " + entry.Name, Err: err}
		}

		contentType := mime.TypeByExtension(path.Ext(clean))
		saveErr := s.Storage.Save(ctx, prefix+"/"+clean, rc, int64(entry.UncompressedSize64), contentType)
		// Close surfaces the CRC32 mismatch for a corrupted member.
		closeErr := rc.Close()
		if saveErr == nil {
			saveErr = closeErr
		}
		if saveErr != nil {
			outcome = "error"
			return &util.ExtractionError{Reason: "corrupt or unwritable entry " + entry.Name, Err: saveErr}
		}

		saved++
		s.setProgress(ctx, pkg.ID, fmt.Sprintf("%d/%d", i+1, total))
	}
	if saved == 0 {
		outcome = "error"
		return &util.ExtractionError{Reason: "archive has no extractable entries"}
	}

	if err := s.fillFromDefinition(pkg, zr, kind); err != nil {
		outcome = "error"
		return err
	}
	kindLabel = string(pkg.Kind)

	pkg.ExtractedPath = prefix
	if err := s.PackageRepo.Save(ctx, pkg); err != nil {
		outcome = "error"
		return err
	}

	s.setProgress(ctx, pkg.ID, "done")
	logger.Log.Info("package extracted",
		zap.Uint("package_id", pkg.ID),
		zap.String("kind", string(kind)),
		zap.Int("files", total))
	return nil
}

// ReExtract loads the package and runs extraction again from the stored
// archive.
func (s *PackageService) ReExtract(ctx context.Context, packageID uint) (*model.Package, error) {
	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if err := s.Extract(ctx, pkg); err != nil {
		return pkg, err
	}
	return pkg, nil
}

// DeletePackage removes the row, the extraction mirror, and the archive.
func (s *PackageService) DeletePackage(ctx context.Context, packageID uint) error {
	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil {
		return err
	}
	if err := s.PackageRepo.Delete(ctx, packageID); err != nil {
		return err
	}

	if pkg.ExtractedPath != "" {
		s.removeTree(ctx, pkg)
	}
	if pkg.ArchivePath != "" {
		if err := s.Storage.Delete(ctx, pkg.ArchivePath); err != nil {
			logger.Log.Warn("could not remove archive",
				zap.Uint("package_id", packageID), zap.Error(err))
		}
	}
	s.Redis.Del(ctx, extractProgressPrefix+fmt.Sprint(packageID))
	return nil
}

// Progress reports the extraction progress marker for a package. Returns
// an empty string when no extraction is running and none has finished
// recently.
func (s *PackageService) Progress(ctx context.Context, packageID uint) (string, error) {
	val, err := s.Redis.Get(ctx, extractProgressPrefix+fmt.Sprint(packageID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *PackageService) setProgress(ctx context.Context, packageID uint, marker string) {
	if err := s.Redis.Set(ctx, extractProgressPrefix+fmt.Sprint(packageID), marker, extractProgressTTL).Err(); err != nil {
		logger.Log.Debug("progress marker write failed", zap.Error(err))
	}
}

// removeTree deletes a package's extraction mirror. The stored path is
// re-validated against the content root first: a corrupted or tampered row
// must never aim the recursive delete at the root itself or outside it.
func (s *PackageService) removeTree(ctx context.Context, pkg *model.Package) {
	rel, ok := strings.CutPrefix(pkg.ExtractedPath, s.Config.Storage.ContentPath+"/")
	if !ok {
		logger.Log.Warn("refusing to delete extraction mirror outside content root",
			zap.Uint("package_id", pkg.ID),
			zap.String("path", pkg.ExtractedPath))
		return
	}
	clean, err := util.NormalizeContentPath(rel)
	if err != nil {
		logger.Log.Warn("refusing to delete unsafe extraction mirror path",
			zap.Uint("package_id", pkg.ID),
			zap.String("path", pkg.ExtractedPath))
		return
	}
	tree := s.Config.Storage.ContentPath + "/" + clean
	if err := s.Storage.DeleteTree(ctx, tree); err != nil {
		logger.Log.Warn("could not remove extraction mirror",
			zap.Uint("package_id", pkg.ID), zap.Error(err))
	}
}

// stageArchive copies the stored archive to a local temp file so the zip
// reader gets the io.ReaderAt it needs regardless of storage backend.
func (s *PackageService) stageArchive(ctx context.Context, archivePath string) (*os.File, error) {
	src, err := s.Storage.Open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "lms-archive-*.zip")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

// detectPackageKind classifies the archive by its root definition file.
// The manifest must sit at the archive root; nested manifests belong to
// sub-packages and do not make the archive launchable.
func detectPackageKind(entries []*zip.File) (model.PackageKind, error) {
	for _, f := range entries {
		clean, err := util.NormalizeContentPath(f.Name)
		if err != nil {
			continue
		}
		switch clean {
		case "imsmanifest.xml":
			return model.PackageScorm12, nil
		case "h5p.json":
			return model.PackageH5P, nil
		}
	}
	return "", &util.ExtractionError{Reason: "archive has neither imsmanifest.xml nor h5p.json at its root"}
}

// fillFromDefinition parses the package definition file out of the zip and
// copies the derived fields onto the row. For SCORM the kind may be
// upgraded to 2004 based on the manifest's schema version.
func (s *PackageService) fillFromDefinition(pkg *model.Package, zr *zip.Reader, kind model.PackageKind) error {
	switch kind {
	case model.PackageH5P:
		rc, err := openZipEntry(zr, "h5p.json")
		if err != nil {
			return err
		}
		defer rc.Close()

		def, err := ParseH5PDefinition(rc)
		if err != nil {
			return err
		}
		if def.Title != "" {
			pkg.Title = def.Title
		}
		pkg.Kind = model.PackageH5P
		pkg.MainLibrary = def.MainLibrary
		pkg.LaunchURL = "h5p.json"

		raw, err := json.Marshal(def)
		if err != nil {
			return err
		}
		pkg.Manifest = datatypes.JSON(raw)
		return nil

	default:
		rc, err := openZipEntry(zr, "imsmanifest.xml")
		if err != nil {
			return err
		}
		defer rc.Close()

		parsed, err := ParseSCORMManifest(rc)
		if err != nil {
			return err
		}
		if parsed.Title != "" {
			pkg.Title = parsed.Title
		}
		pkg.Kind = parsed.Kind
		pkg.LaunchURL = parsed.LaunchURL

		raw, err := json.Marshal(parsed)
		if err != nil {
			return err
		}
		pkg.Manifest = datatypes.JSON(raw)
		return nil
	}
}

func openZipEntry(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		clean, err := util.NormalizeContentPath(f.Name)
		if err != nil {
			continue
		}
		if clean == name {
			return f.Open()
		}
	}
	return nil, &util.ExtractionError{Reason: "missing " + name}
}
