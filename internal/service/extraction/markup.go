package extraction

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// TextFormat tells how pasted text is encoded.
type TextFormat string

const (
	FormatPlain TextFormat = "plain"
	FormatHTML  TextFormat = "html"
)

// ParseTextFormat accepts "plain", "html" or empty (plain).
func ParseTextFormat(s string) (TextFormat, error) {
	switch TextFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported text format: %s", s)
	}
}

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy

	// block boundaries become line breaks so words on separate lines stay apart
	blockTagRe = regexp.MustCompile(`(?i)<\s*(?:br|/p|/div|/li|/tr|/td|/h[1-6])\b[^>]*>`)
)

func markupStripper() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

// plainText returns the visible text of a listing copied as HTML.
func plainText(markup string) string {
	withBreaks := blockTagRe.ReplaceAllString(markup, "\n")
	stripped := markupStripper().Sanitize(withBreaks)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
