package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/tome/internal/models"
)

// Extractor pulls the text layer out of uploaded PDF binaries. No OCR
// is performed; a scanned-image-only PDF extracts to an empty string.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract parses data as a PDF and returns the concatenated plain
// text of all pages, in page order. Pages without a parseable text
// layer are skipped. A binary that is not a PDF at all fails with
// ExtractionError.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (text string, err error) {
	// The parser panics on some truncated or malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &models.ExtractionError{
				Filename: filename,
				Err:      fmt.Errorf("malformed PDF: %v", r),
			}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Err: err}
	}

	var content strings.Builder

	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", &models.ExtractionError{Filename: filename, Err: err}
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages the parser cannot decode
			continue
		}

		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}

		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(pageText)
	}

	return content.String(), nil
}
