package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// PdftotextExtractor shells out to poppler's pdftotext. It is the fallback
// for hosts built without cgo.
type PdftotextExtractor struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

func NewPdftotextExtractor(bin string, logger *slog.Logger) *PdftotextExtractor {
	return newPdftotextExtractor(bin, execRunner{}, logger)
}

func newPdftotextExtractor(bin string, runner Runner, logger *slog.Logger) *PdftotextExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PdftotextExtractor{bin: bin, runner: runner, logger: logger}
}

func (e *PdftotextExtractor) Extract(ctx context.Context, document []byte) ([]entity.Page, error) {
	f, err := os.CreateTemp("", "invoice-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("extract.pdftotext.cleanup_failed", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(document); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPDF, strings.TrimSpace(string(errb)))
	}

	// a form feed separates pages, and one trails the last page
	raw := strings.Split(string(out), "\f")
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	return finish(raw)
}
