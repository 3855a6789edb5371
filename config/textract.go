package config

import "sync"

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Configured reports whether credentials for Textract are present.
func (c *TextractConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadEnv()
		textractConfig = &TextractConfig{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Endpoint:  getEnv("AWS_ENDPOINT", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY", ""),
			SecretKey: getEnv("AWS_SECRET_KEY", ""),
		}
	})
	return textractConfig
}
