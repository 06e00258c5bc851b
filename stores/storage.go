package stores

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"whiteboard/config"
	"whiteboard/core"
	"whiteboard/stores/aws"
	"whiteboard/stores/filesystem"
	"whiteboard/stores/memory"
	"whiteboard/stores/sqlite"
)

// Open returns the store selected by cfg.StorageType.
func Open(ctx context.Context, cfg config.Config) (core.Store, error) {
	var (
		store core.Store
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "filesystem", "local":
		storageField["basePath"] = cfg.LocalStorePath
		store, err = filesystem.NewStore(cfg.LocalStorePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.S3BucketName == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3BucketName
		store, err = aws.NewStore(ctx, cfg.S3BucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageType, err)
	}

	storageField["store"] = store.Name()
	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}
