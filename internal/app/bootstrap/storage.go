package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/files"
	"github.com/wolfman30/clinic-admin/internal/observability/metrics"
)

// BuildFileStorage picks the media backend: local disk unless FILES_BACKEND=s3.
func BuildFileStorage(cfg *appconfig.Config, awsCfg aws.Config, m *metrics.AdminMetrics) (files.Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.FilesBackend)) {
	case "", "disk":
		return files.NewDiskStorage(cfg.FilesBaseDir, cfg.FilesBaseURL), nil
	case "s3":
		if strings.TrimSpace(cfg.FilesS3Bucket) == "" {
			return nil, fmt.Errorf("bootstrap: FILES_S3_BUCKET is required for the s3 backend")
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// LocalStack serves buckets on the path, not a subdomain.
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return files.NewS3Storage(client, cfg.FilesS3Bucket, cfg.FilesBaseURL).WithMetrics(m), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown files backend %q", cfg.FilesBackend)
	}
}
