package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// FitzExtractor reads the text layer with MuPDF.
type FitzExtractor struct {
	logger *slog.Logger
}

func NewFitzExtractor(logger *slog.Logger) *FitzExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FitzExtractor{logger: logger}
}

func (e *FitzExtractor) Extract(ctx context.Context, document []byte) ([]entity.Page, error) {
	start := time.Now()

	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		e.logger.Warn("extract.fitz.open_failed", "error", err, "bytes", len(document))
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer func() {
		if err := doc.Close(); err != nil {
			e.logger.Warn("extract.fitz.close_failed", "error", err)
		}
	}()

	n := doc.NumPage()
	raw := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txt, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		raw = append(raw, txt)
	}

	pages, err := finish(raw)
	e.logger.Debug("extract.fitz.done",
		"pages", n,
		"chars", entity.TotalChars(pages),
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, err
}
