package document

import (
	"context"
	"errors"
)

// ErrDocumentUnreadable is returned when a document cannot be parsed at all.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Document is the text layer read from an uploaded file.
type Document struct {
	Text   string
	Pages  int
	Title  string
	Author string
}

// Source 文档文本来源接口
type Source interface {
	// CanProcess 检查是否可以处理指定MIME类型的文件
	CanProcess(mimeType string) bool

	// Read 读取文档的文本层
	Read(ctx context.Context, data []byte) (*Document, error)
}
