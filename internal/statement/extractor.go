package statement

import (
	"bytes"
	"context"
	"errors"

	"github.com/vchukka/finsense/internal/domain"
)

// PDFExtractor turns a statement PDF into transaction lines. Implemented
// by the model client.
type PDFExtractor interface {
	ExtractStatement(ctx context.Context, data []byte) ([]domain.RawLine, error)
}

// AutoExtractor picks the extractor by content: PDF bytes go to the model,
// everything else through the text-line parser.
type AutoExtractor struct {
	PDF PDFExtractor // nil disables PDF statements
}

func (e AutoExtractor) Extract(ctx context.Context, data []byte) ([]domain.RawLine, error) {
	if IsPDF(data) {
		if e.PDF == nil {
			return nil, errors.New("statement is a PDF but no model extractor is configured")
		}
		return e.PDF.ExtractStatement(ctx, data)
	}
	return ParseText(string(data)), nil
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
