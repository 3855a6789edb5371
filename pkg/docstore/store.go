// Package docstore persists small JSON documents by key.
package docstore

import (
	"context"
	"errors"
	"fmt"

	cfg "github.com/feichai0017/quote-extractor/config"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// ErrNotFound is returned by Load for unknown keys.
var ErrNotFound = errors.New("document not found")

type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewStore opens the backend selected by storeCfg.
func NewStore(storeCfg *cfg.StoreConfig, redisCfg *cfg.RedisConfig, log logger.Logger) (Store, error) {
	switch storeCfg.Backend {
	case cfg.StoreRedis:
		return NewRedisStore(redisCfg.Addr, redisCfg.Password, redisCfg.DB)
	case cfg.StoreSQLite:
		return NewSQLiteStore(storeCfg.SQLitePath)
	case "memory":
		log.Warn("Quote documents are kept in memory and will not survive restarts")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported quote store: %s", storeCfg.Backend)
	}
}
