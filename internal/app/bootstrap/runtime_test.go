package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/clinic-admin/internal/config"
	"github.com/wolfman30/clinic-admin/internal/files"
	"github.com/wolfman30/clinic-admin/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without address")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildPostgresRequiresURL(t *testing.T) {
	if _, _, err := BuildPostgres(context.Background(), &appconfig.Config{}); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestBuildFileStorage(t *testing.T) {
	disk, err := BuildFileStorage(&appconfig.Config{FilesBaseDir: t.TempDir()}, aws.Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := disk.(*files.DiskStorage); !ok {
		t.Fatalf("expected disk storage by default, got %T", disk)
	}

	if _, err := BuildFileStorage(&appconfig.Config{FilesBackend: "s3"}, aws.Config{}, nil); err == nil {
		t.Fatalf("expected error without bucket")
	}

	s3Store, err := BuildFileStorage(&appconfig.Config{FilesBackend: "s3", FilesS3Bucket: "media"}, aws.Config{Region: "us-east-1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s3Store.(*files.S3Storage); !ok {
		t.Fatalf("expected s3 storage, got %T", s3Store)
	}

	if _, err := BuildFileStorage(&appconfig.Config{FilesBackend: "ftp"}, aws.Config{}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuildCalendarRequiresToken(t *testing.T) {
	if _, err := BuildCalendar(context.Background(), &appconfig.Config{}, nil, nil); err == nil {
		t.Fatalf("expected error without calendar token")
	}
}
