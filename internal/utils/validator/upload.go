// internal/utils/validator/upload.go
package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/feichai0017/quote-extractor/pkg/logger"
)

// Error codes reported in ValidationError.
const (
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeEmptyFile       = "EMPTY_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeInvalidMimeType = "INVALID_MIME_TYPE"
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeImageTooSmall   = "IMAGE_TOO_SMALL"
	CodeImageTooLarge   = "IMAGE_TOO_LARGE"
	CodeInvalidPDF      = "INVALID_PDF"
)

// UploadValidator 上传文件验证器
type UploadValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

// ValidatorConfig 验证器配置
type ValidatorConfig struct {
	MaxFileSize  int64               // 最大文件大小（字节）
	AllowedTypes map[string][]string // 允许的文件类型 {扩展名: []MIME类型}
	MinDimension int                 // 图片最小尺寸
	MaxDimension int                 // 图片最大尺寸
}

func DefaultConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize: 10 * 1024 * 1024,
		AllowedTypes: map[string][]string{
			".jpg":  {"image/jpeg"},
			".jpeg": {"image/jpeg"},
			".png":  {"image/png"},
			".gif":  {"image/gif"},
			".pdf":  {"application/pdf"},
		},
		MinDimension: 16,
		MaxDimension: 10000,
	}
}

// ValidationResult 验证结果
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

// Err returns the result as an error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Errors: r.Errors}
}

// ValidationError 验证错误
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error is returned for uploads that fail validation.
type Error struct {
	Errors []ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Message
	}
	return "invalid upload: " + strings.Join(msgs, "; ")
}

// FileInfo 文件信息
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// IsImage reports whether the upload was sniffed as an image.
func (f FileInfo) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

func NewUploadValidator(log logger.Logger, config *ValidatorConfig) *UploadValidator {
	if config == nil {
		config = DefaultConfig()
	}
	return &UploadValidator{
		logger: log,
		config: config,
	}
}

// Validate checks an upload already read into memory.
func (v *UploadValidator) Validate(filename string, data []byte) *ValidationResult {
	hash := sha256.Sum256(data)
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  filename,
			Size:      int64(len(data)),
			Extension: strings.ToLower(filepath.Ext(filename)),
			MimeType:  http.DetectContentType(data),
			Hash:      hex.EncodeToString(hash[:]),
		},
	}

	errs := v.basic(result.FileInfo)
	if len(errs) == 0 {
		errs = v.mimeType(result.FileInfo)
	}
	if len(errs) == 0 {
		errs = v.typeSpecific(data, &result.FileInfo)
	}
	if len(errs) > 0 {
		result.IsValid = false
		result.Errors = errs
		v.logger.Warn("Upload rejected",
			logger.String("filename", filename),
			logger.String("code", errs[0].Code),
		)
	}
	return result
}

// 基本验证
func (v *UploadValidator) basic(info FileInfo) []ValidationError {
	var errors []ValidationError

	if info.Size == 0 {
		errors = append(errors, ValidationError{
			Code:    CodeEmptyFile,
			Message: "File is empty",
			Field:   "size",
		})
	}
	if info.Size > v.config.MaxFileSize {
		errors = append(errors, ValidationError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if _, ok := v.config.AllowedTypes[info.Extension]; !ok {
		errors = append(errors, ValidationError{
			Code:    CodeInvalidFileType,
			Message: fmt.Sprintf("File type %s is not allowed", info.Extension),
			Field:   "extension",
		})
	}
	return errors
}

// MIME类型验证
func (v *UploadValidator) mimeType(info FileInfo) []ValidationError {
	for _, mime := range v.config.AllowedTypes[info.Extension] {
		if mime == info.MimeType {
			return nil
		}
	}
	return []ValidationError{{
		Code:    CodeInvalidMimeType,
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}}
}

// 特定类型验证
func (v *UploadValidator) typeSpecific(data []byte, info *FileInfo) []ValidationError {
	if info.MimeType == "application/pdf" {
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return []ValidationError{{Code: CodeInvalidPDF, Message: "Missing PDF header", Field: "file"}}
		}
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return []ValidationError{{Code: CodeInvalidImage, Message: "Image cannot be decoded", Field: "file"}}
	}
	info.Width, info.Height = cfg.Width, cfg.Height

	switch {
	case cfg.Width < v.config.MinDimension || cfg.Height < v.config.MinDimension:
		return []ValidationError{{
			Code:    CodeImageTooSmall,
			Message: fmt.Sprintf("Image must be at least %dx%d pixels", v.config.MinDimension, v.config.MinDimension),
			Field:   "dimensions",
		}}
	case cfg.Width > v.config.MaxDimension || cfg.Height > v.config.MaxDimension:
		return []ValidationError{{
			Code:    CodeImageTooLarge,
			Message: fmt.Sprintf("Image must be at most %dx%d pixels", v.config.MaxDimension, v.config.MaxDimension),
			Field:   "dimensions",
		}}
	}
	return nil
}
