package config

import "sync"

const (
	EngineTesseract = "tesseract"
	EngineTextract  = "textract"
)

var (
	ocrOnce   sync.Once
	ocrConfig *OCRConfig
)

type OCRConfig struct {
	Engine         string
	TessdataPrefix string
	Preprocess     bool
	MinConfidence  float32
	VocabularyFile string
}

func GetOCRConfig() *OCRConfig {
	ocrOnce.Do(func() {
		loadEnv()
		ocrConfig = &OCRConfig{
			Engine:         getEnv("OCR_ENGINE", EngineTesseract),
			TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
			Preprocess:     getEnvBool("OCR_PREPROCESS", true),
			MinConfidence:  float32(getEnvInt("OCR_MIN_CONFIDENCE", 80)),
			VocabularyFile: getEnv("VOCABULARY_FILE", ""),
		}
	})
	return ocrConfig
}
