package service

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"lms_content_backend/internal/config"
	"lms_content_backend/internal/model"
	"lms_content_backend/internal/repository"
	"lms_content_backend/internal/util"
	"lms_content_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const urlCachePrefix = "content_url:"

// ContentResolution tells the controller how to answer a gateway request:
// either redirect to a signed URL or stream the body.
type ContentResolution struct {
	Redirect     bool
	URL          string
	Body         io.ReadCloser
	ContentType  string
	CacheControl string
}

// ContentService is the authenticated gateway in front of extracted
// package files. Every lookup failure surfaces as not-found so the
// gateway never confirms what exists inside a package tree.
type ContentService struct {
	DB             *gorm.DB
	Storage        *StorageService
	Redis          *redis.Client
	PackageRepo    *repository.PackageRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository

	mu     sync.RWMutex
	policy config.GatewayConfig
}

func NewContentService(db *gorm.DB, cfg *config.Config, storage *StorageService, rdb *redis.Client) *ContentService {
	return &ContentService{
		DB:             db,
		Storage:        storage,
		Redis:          rdb,
		PackageRepo:    repository.NewPackageRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
		policy:         cfg.Gateway,
	}
}

// UpdatePolicy swaps the gateway policy. Called from the config watcher
// so cache and redirect rules apply without a restart.
func (s *ContentService) UpdatePolicy(cfg *config.Config) {
	s.mu.Lock()
	s.policy = cfg.Gateway
	s.mu.Unlock()
	logger.Log.Info("content gateway policy reloaded")
}

// Resolve authorizes the request and decides redirect versus proxy.
func (s *ContentService) Resolve(ctx context.Context, userID uint, role model.UserRole, packageID uint, rawPath string) (*ContentResolution, error) {
	clean, err := util.NormalizeContentPath(rawPath)
	if err != nil {
		return nil, util.ErrPackageNotFound
	}

	pkg, err := s.PackageRepo.FindByID(ctx, packageID)
	if err != nil || pkg.ExtractedPath == "" {
		return nil, util.ErrPackageNotFound
	}

	if err := s.authorize(ctx, userID, role, pkg); err != nil {
		return nil, err
	}

	fullPath := pkg.ExtractedPath + "/" + clean
	contentType := mime.TypeByExtension(path.Ext(clean))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.mu.RLock()
	policy := s.policy
	s.mu.RUnlock()

	res := &ContentResolution{
		ContentType:  contentType,
		CacheControl: cacheControlFor(policy.CacheControl, contentType),
	}

	if policy.RedirectMedia && hasRedirectPrefix(policy.RedirectPrefixes, contentType) {
		url, err := s.signedURL(ctx, policy, fullPath)
		if err == nil && url != "" {
			res.Redirect = true
			res.URL = url
			return res, nil
		}
		// Fall through to proxying when signing fails.
	}

	body, err := s.Storage.Open(ctx, fullPath)
	if err != nil {
		return nil, util.ErrPackageNotFound
	}
	res.Body = body
	return res, nil
}

// authorize admits staff outright and learners who are enrolled in a
// course that delivers the package.
func (s *ContentService) authorize(ctx context.Context, userID uint, role model.UserRole, pkg *model.Package) error {
	if role == model.Admin || role == model.Teacher {
		return nil
	}

	lessons, err := s.LessonRepo.ContainingPackage(ctx, pkg.ID)
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

// signedURL returns a redirect target for the object, cached in Redis so
// repeated hits on the same asset do not re-sign.
func (s *ContentService) signedURL(ctx context.Context, policy config.GatewayConfig, fullPath string) (string, error) {
	key := urlCachePrefix + fullPath
	if url, err := s.Redis.Get(ctx, key).Result(); err == nil && url != "" {
		return url, nil
	}

	url, err := s.Storage.URL(ctx, fullPath)
	if err != nil {
		return "", err
	}
	ttl := time.Duration(policy.URLCacheSeconds) * time.Second
	if ttl > 0 {
		if err := s.Redis.Set(ctx, key, url, ttl).Err(); err != nil {
			logger.Log.Debug("url cache write failed", zap.Error(err))
		}
	}
	return url, nil
}

// cacheControlFor picks a Cache-Control value: exact MIME match first,
// then the longest matching "type/*" wildcard, then "default".
func cacheControlFor(rules map[string]string, contentType string) string {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}

	if v, ok := rules[mediaType]; ok {
		return v
	}

	best, bestLen := "", -1
	for pattern, v := range rules {
		prefix, ok := strings.CutSuffix(pattern, "/*")
		if !ok {
			continue
		}
		if strings.HasPrefix(mediaType, prefix+"/") && len(pattern) > bestLen {
			best, bestLen = v, len(pattern)
		}
	}
	if bestLen >= 0 {
		return best
	}
	return rules["default"]
}

func hasRedirectPrefix(prefixes []string, contentType string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
