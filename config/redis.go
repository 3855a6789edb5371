package config

import "sync"

var (
	redisOnce   sync.Once
	redisConfig *RedisConfig
)

type RedisConfig struct {
	Addr              string
	Password          string
	DB                int
	WorkerConcurrency int
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadEnv()
		redisConfig = &RedisConfig{
			Addr:              getEnv("REDIS_ADDR", "localhost:6379"),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                getEnvInt("REDIS_DB", 0),
			WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		}
	})
	return redisConfig
}
