package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

const maxWorkers = 4

// Processor reads the embedded text layer of PDF documents. Scanned PDFs
// without a text layer read as empty text.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	return &Processor{
		logger: log.Named("pdf"),
	}
}

func (p *Processor) CanProcess(mimeType string) bool {
	return mimeType == "application/pdf"
}

func (p *Processor) Read(ctx context.Context, content []byte) (doc *document.Document, err error) {
	// the parser panics on some truncated files
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", document.ErrDocumentUnreadable, r)
		}
	}()

	// 创建一个bytes.Reader，它实现了io.ReaderAt接口
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrDocumentUnreadable, err)
	}

	numPages := pdfReader.NumPage()
	pages := make([]string, numPages)

	// 并行处理每一页
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("failed to get text from page %d: %w", pageNum, err)
			}
			pages[pageNum-1] = cleanText(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc = &document.Document{
		Text:  strings.TrimSpace(strings.Join(pages, "\n")),
		Pages: numPages,
	}
	p.readInfo(pdfReader, doc)

	p.logger.Debug("PDF text layer read",
		logger.Int("pages", numPages),
		logger.Int("chars", len(doc.Text)),
	)
	return doc, nil
}

// 尝试从PDF文档中获取标题和作者
func (p *Processor) readInfo(r *pdf.Reader, doc *document.Document) {
	trailer := r.Trailer()
	if trailer.IsNull() {
		return
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return
	}
	if title := info.Key("Title"); !title.IsNull() {
		doc.Title = title.Text()
	}
	if author := info.Key("Author"); !author.IsNull() {
		doc.Author = author.Text()
	}
}

// cleanText drops the NUL padding some generators emit and trims each line.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}
