package extract

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var (
	// ErrNoText means the document parsed but carries no text layer.
	ErrNoText = errors.New("PDF contains no extractable text. This may be a scanned document or image-based PDF.")
	// ErrNoPages means the document has zero pages.
	ErrNoPages = errors.New("PDF file contains no pages")
	// ErrInvalidPDF means the bytes are not a readable PDF.
	ErrInvalidPDF = errors.New("invalid PDF file format")
)

// TextExtractor turns a PDF into normalized per-page text. Implementations
// return ErrNoText when no page yields text.
type TextExtractor interface {
	Extract(ctx context.Context, document []byte) ([]entity.Page, error)
}

// finish normalizes page text and applies the no-text rule.
func finish(raw []string) ([]entity.Page, error) {
	if len(raw) == 0 {
		return nil, ErrNoPages
	}
	pages := make([]entity.Page, 0, len(raw))
	for i, txt := range raw {
		pages = append(pages, entity.Page{Number: i + 1, Text: Normalize(txt)})
	}
	if !entity.HasText(pages) {
		return nil, ErrNoText
	}
	return pages, nil
}
