package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
)

var (
	// ErrFileExists means the category already holds a file with that name.
	ErrFileExists = errors.New("files: file already exists")
	// ErrBaseURLMissing means public URLs cannot be built.
	ErrBaseURLMissing = errors.New("files: FILES_BASE_URL is not configured")
)

// Storage keeps the file bytes. Save never overwrites.
type Storage interface {
	Save(ctx context.Context, category, name string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, category, name string) error
}

func publicURL(baseURL, category, name string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "", ErrBaseURLMissing
	}
	return base + "/" + category + "/" + name, nil
}

// DiskStorage writes under baseDir/{category}/{name}, served by a static
// file server at baseURL.
type DiskStorage struct {
	baseDir string
	baseURL string
}

var _ Storage = (*DiskStorage)(nil)

// NewDiskStorage creates a local disk backend.
func NewDiskStorage(baseDir, baseURL string) *DiskStorage {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = "./public/files"
	}
	return &DiskStorage{baseDir: baseDir, baseURL: baseURL}
}

// categoryDir resolves baseDir/{category} and refuses anything that is not a
// direct child of baseDir.
func (d *DiskStorage) categoryDir(category string) (string, error) {
	if err := ValidateCategory(category); err != nil {
		return "", err
	}
	dir := filepath.Join(d.baseDir, category)
	rel, err := filepath.Rel(d.baseDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.ContainsRune(rel, filepath.Separator) {
		return "", ErrInvalidCategory
	}
	return dir, nil
}

func (d *DiskStorage) Save(_ context.Context, category, name string, body io.Reader, _ int64) (string, error) {
	dir, err := d.categoryDir(category)
	if err != nil {
		return "", err
	}
	url, err := publicURL(d.baseURL, category, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("files: create category dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrFileExists
		}
		return "", fmt.Errorf("files: create %s: %w", path, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("files: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("files: close %s: %w", path, err)
	}
	return url, nil
}

// Delete removes the file and then the category directory once it is empty.
// A missing file is not an error.
func (d *DiskStorage) Delete(_ context.Context, category, name string) error {
	dir, err := d.categoryDir(category)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("files: remove %s: %w", name, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("files: read category dir: %w", err)
	}
	if len(entries) == 0 {
		if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("files: remove category dir: %w", err)
		}
	}
	return nil
}

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage keeps files at {category}/{name} in one bucket.
type S3Storage struct {
	api     S3API
	bucket  string
	baseURL string
	metrics *metrics.AdminMetrics
}

var _ Storage = (*S3Storage)(nil)

// NewS3Storage creates an S3 backend. Without a base URL, links point at the
// bucket's virtual-hosted endpoint.
func NewS3Storage(api S3API, bucket, baseURL string) *S3Storage {
	if api == nil {
		panic("files: s3 client cannot be nil")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3Storage{api: api, bucket: bucket, baseURL: baseURL}
}

// WithMetrics records outbound call metrics.
func (s *S3Storage) WithMetrics(m *metrics.AdminMetrics) *S3Storage {
	s.metrics = m
	return s
}

func (s *S3Storage) key(category, name string) string {
	return category + "/" + name
}

func (s *S3Storage) Save(ctx context.Context, category, name string, body io.Reader, size int64) (string, error) {
	if err := ValidateCategory(category); err != nil {
		return "", err
	}
	key := s.key(category, name)

	began := time.Now()
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	var notFound *s3types.NotFound
	switch {
	case err == nil:
		s.metrics.ObserveOutbound("s3", "head", time.Since(began).Seconds(), nil)
		return "", ErrFileExists
	case errors.As(err, &notFound):
		s.metrics.ObserveOutbound("s3", "head", time.Since(began).Seconds(), nil)
	default:
		s.metrics.ObserveOutbound("s3", "head", time.Since(began).Seconds(), err)
		return "", fmt.Errorf("files: s3 head %s: %w", key, err)
	}

	began = time.Now()
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	s.metrics.ObserveOutbound("s3", "put", time.Since(began).Seconds(), err)
	if err != nil {
		return "", fmt.Errorf("files: s3 put %s: %w", key, err)
	}
	return publicURL(s.baseURL, category, name)
}

func (s *S3Storage) Delete(ctx context.Context, category, name string) error {
	key := s.key(category, name)
	began := time.Now()
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	s.metrics.ObserveOutbound("s3", "delete", time.Since(began).Seconds(), err)
	if err != nil {
		return fmt.Errorf("files: s3 delete %s: %w", key, err)
	}
	return nil
}
