package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/tome/internal/models"
	"github.com/xhad/tome/pkg/extract"
)

func TestExtract_RejectsNonPDF(t *testing.T) {
	e := extract.New()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty input", nil},
		{"plain text", []byte("this is not a pdf at all")},
		{"html upload", []byte("<html><body>oops</body></html>")},
		{"truncated header", []byte("%PDF-1.7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), "upload.pdf", tt.data)
			require.Error(t, err)

			var extErr *models.ExtractionError
			require.ErrorAs(t, err, &extErr)
			assert.Equal(t, "upload.pdf", extErr.Filename)
		})
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	e := extract.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, "upload.pdf", []byte("garbage"))
	assert.Error(t, err)
}
