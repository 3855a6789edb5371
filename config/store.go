package config

import "sync"

const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

var (
	storeOnce   sync.Once
	storeConfig *StoreConfig
)

// StoreConfig selects where quote documents persist.
type StoreConfig struct {
	Backend    string
	SQLitePath string
	// StorageType picks the object storage for uploads and results: s3 or minio.
	StorageType string
}

func GetStoreConfig() *StoreConfig {
	storeOnce.Do(func() {
		loadEnv()
		storeConfig = &StoreConfig{
			Backend:     getEnv("QUOTE_STORE", StoreRedis),
			SQLitePath:  getEnv("SQLITE_PATH", "quotes.db"),
			StorageType: getEnv("STORAGE_TYPE", "minio"),
		}
	})
	return storeConfig
}
