package extract

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info is what structural inspection learns about a document.
type Info struct {
	Pages int
}

// Inspect parses and validates the PDF object structure without touching
// page content. Uploads are rejected here before any text work is done.
func Inspect(document []byte) (Info, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(document, "\x00\t\r\n "), []byte("%PDF-")) {
		return Info{}, ErrInvalidPDF
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(document), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pdfCtx.PageCount == 0 {
		return Info{}, ErrNoPages
	}
	return Info{Pages: pdfCtx.PageCount}, nil
}
