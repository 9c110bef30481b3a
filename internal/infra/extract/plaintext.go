package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlainText is the passthrough implementation of the TextExtractor
// collaborator: it accepts documents that already are text. Richer formats
// (PDF, DOCX) are handled by an external extraction service.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document %s is not valid UTF-8 text", filename)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("document %s contains no text", filename)
	}
	return text, nil
}
