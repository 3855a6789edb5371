package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	cfg "github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/storage/minio"
	"github.com/feichai0017/quote-extractor/pkg/storage/s3"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Key prefixes for the objects the pipeline writes.
const (
	UploadPrefix = "uploads/"
	ResultPrefix = "results/"
)

func UploadKey(taskID, ext string) string { return UploadPrefix + taskID + ext }

func ResultKey(taskID string) string { return ResultPrefix + taskID + ".json" }

// Storage 接口定义
type Storage interface {
	// Store 存储文件
	Store(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
	// Get 获取文件
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除文件
	Delete(ctx context.Context, key string) error
	// CleanupBefore 清理过期文件
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(ctx context.Context, storageType StorageType, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, cfg.GetS3Config(), log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, cfg.GetMinioConfig(), log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
