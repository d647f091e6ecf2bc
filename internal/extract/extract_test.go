package extract

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/sample"
)

func TestNormalize(t *testing.T) {
	in := "  Fatura\r\n\r\n\r\n\r\n05/02  \tSUPERMERCADO   245,90 \r\nTotal\t\t 1.000,00  "
	assert.Equal(t, "Fatura\n\n05/02 SUPERMERCADO 245,90\nTotal 1.000,00", Normalize(in))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "R$ 0,01", Normalize("R$ 0,01"))
}

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	if len(args) >= 2 {
		if _, err := os.Stat(args[len(args)-2]); err != nil {
			return nil, nil, fmt.Errorf("input not written: %w", err)
		}
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestPdftotextSplitsPages(t *testing.T) {
	r := &fakeRunner{stdout: "page one   text\n\fpage two\n\f"}
	e := newPdftotextExtractor("", r, nil)

	pages, err := e.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "page one text", pages[0].Text)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "pdftotext", r.args[0])
	assert.Contains(t, r.args, "-layout")
}

func TestPdftotextNoText(t *testing.T) {
	e := newPdftotextExtractor("pdftotext", &fakeRunner{stdout: " \n\f\n\f"}, nil)
	_, err := e.Extract(context.Background(), []byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestPdftotextCommandFailure(t *testing.T) {
	e := newPdftotextExtractor("pdftotext", &fakeRunner{stderr: "Syntax Error", err: fmt.Errorf("exit 1")}, nil)
	_, err := e.Extract(context.Background(), []byte("junk"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestFitzExtractsGeneratedStatement(t *testing.T) {
	doc, err := sample.Render(sample.DefaultStatement())
	require.NoError(t, err)

	pages, err := NewFitzExtractor(nil).Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0].Text, "SUPERMERCADO PAO DE ACUCAR")
	assert.Contains(t, pages[1].Text, "POSTO SHELL")
}

func TestFitzRejectsImageOnly(t *testing.T) {
	doc, err := sample.Blank(1)
	require.NoError(t, err)

	_, err = NewFitzExtractor(nil).Extract(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestFitzRejectsGarbage(t *testing.T) {
	_, err := NewFitzExtractor(nil).Extract(context.Background(), []byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	doc, err := sample.Render(sample.DefaultStatement())
	require.NoError(t, err)

	info, err := Inspect(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Pages)

	_, err = Inspect([]byte("hello"))
	assert.ErrorIs(t, err, ErrInvalidPDF)

	_, err = Inspect([]byte("%PDF-1.4\ntruncated"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}
