package config

import (
	"strings"
	"sync"
)

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

type ServerConfig struct {
	Addr           string
	LogLevel       string
	LogEncoding    string
	LogFile        string
	MaxUploadBytes int64
	AllowedOrigins []string
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			Addr:           getEnv("SERVER_ADDR", ":8080"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogEncoding:    getEnv("LOG_ENCODING", "json"),
			LogFile:        getEnv("LOG_FILE", ""),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		}
	})
	return serverConfig
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
