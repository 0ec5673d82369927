package storage

import (
	"context"
	"fmt"

	"timecapsule/internal/config"
)

const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// New builds the Storage selected by cfg.Storage.Driver.
func New(ctx context.Context, cfg *config.AppConfig) (Storage, error) {
	switch cfg.Storage.Driver {
	case "", DriverMinIO:
		return NewMinIO(cfg.MinIO)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
