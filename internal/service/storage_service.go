package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lms_content_backend/internal/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider is the blob-store abstraction shared by extraction,
// deletion, and the content gateway. Implementations must behave
// consistently whether backed by the local filesystem or an object store.
type StorageProvider interface {
	Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// DeleteTree removes every object under prefix, including incidental
	// empty directories on filesystem backends.
	DeleteTree(ctx context.Context, prefix string) error
	// URL returns an externally resolvable URL for the object, used by the
	// gateway's redirect policy.
	URL(ctx context.Context, path string) (string, error)
}

// LocalStorageProvider stores blobs under a root directory.
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	dst := filepath.Join(p.Config.LocalPath, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	return err
}

func (p *LocalStorageProvider) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.Config.LocalPath, filepath.FromSlash(path)))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func (p *LocalStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(filepath.Join(p.Config.LocalPath, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, path string) error {
	return os.Remove(filepath.Join(p.Config.LocalPath, filepath.FromSlash(path)))
}

func (p *LocalStorageProvider) DeleteTree(ctx context.Context, prefix string) error {
	return os.RemoveAll(filepath.Join(p.Config.LocalPath, filepath.FromSlash(prefix)))
}

func (p *LocalStorageProvider) URL(ctx context.Context, path string) (string, error) {
	return "/uploads/" + path, nil
}

// MinioStorageProvider stores blobs in a MinIO / S3-compatible bucket.
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, path, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := p.Client.GetObject(ctx, p.Config.MinioBucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; stat now so missing keys surface here, not on read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (p *MinioStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := p.Client.StatObject(ctx, p.Config.MinioBucket, path, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, path string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, path, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) DeleteTree(ctx context.Context, prefix string) error {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	objects := p.Client.ListObjects(ctx, p.Config.MinioBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return obj.Err
		}
		if err := p.Client.RemoveObject(ctx, p.Config.MinioBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (p *MinioStorageProvider) URL(ctx context.Context, path string) (string, error) {
	u, err := p.Client.PresignedGetObject(ctx, p.Config.MinioBucket, path, 15*time.Minute, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// OSSStorageProvider stores blobs in an Aliyun OSS bucket.
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) bucket() (*oss.Bucket, error) {
	return p.Client.Bucket(p.Config.OSSBucket)
}

func (p *OSSStorageProvider) Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	bucket, err := p.bucket()
	if err != nil {
		return err
	}
	return bucket.PutObject(path, reader)
}

func (p *OSSStorageProvider) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, err := p.bucket()
	if err != nil {
		return nil, err
	}
	return bucket.GetObject(path)
}

func (p *OSSStorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	bucket, err := p.bucket()
	if err != nil {
		return false, err
	}
	return bucket.IsObjectExist(path)
}

func (p *OSSStorageProvider) Delete(ctx context.Context, path string) error {
	bucket, err := p.bucket()
	if err != nil {
		return err
	}
	return bucket.DeleteObject(path)
}

func (p *OSSStorageProvider) DeleteTree(ctx context.Context, prefix string) error {
	bucket, err := p.bucket()
	if err != nil {
		return err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	marker := ""
	for {
		result, err := bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker))
		if err != nil {
			return err
		}
		for _, obj := range result.Objects {
			if err := bucket.DeleteObject(obj.Key); err != nil {
				return err
			}
		}
		if !result.IsTruncated {
			return nil
		}
		marker = result.NextMarker
	}
}

func (p *OSSStorageProvider) URL(ctx context.Context, path string) (string, error) {
	bucket, err := p.bucket()
	if err != nil {
		return "", err
	}
	return bucket.SignURL(path, oss.HTTPGet, int64((15 * time.Minute).Seconds()))
}

// StorageService selects a provider from config, falling back to local
// storage when a remote backend cannot be constructed.
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case "minio":
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err == nil {
			provider = p
		}
	case "oss":
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err == nil {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider}
}

func (s *StorageService) Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	return s.Provider.Save(ctx, path, reader, size, contentType)
}

func (s *StorageService) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.Provider.Open(ctx, path)
}

func (s *StorageService) Exists(ctx context.Context, path string) (bool, error) {
	return s.Provider.Exists(ctx, path)
}

func (s *StorageService) Delete(ctx context.Context, path string) error {
	return s.Provider.Delete(ctx, path)
}

func (s *StorageService) DeleteTree(ctx context.Context, prefix string) error {
	return s.Provider.DeleteTree(ctx, prefix)
}

func (s *StorageService) URL(ctx context.Context, path string) (string, error) {
	return s.Provider.URL(ctx, path)
}
