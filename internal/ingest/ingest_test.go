package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/sample"
)

type fakeScheduler struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeScheduler) Enqueue(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, id)
	return nil
}

func (f *fakeScheduler) queued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

type fakeExtractor struct {
	pages []entity.Page
	err   error
}

func (f fakeExtractor) Extract(context.Context, []byte) ([]entity.Page, error) {
	return f.pages, f.err
}

type namedProvider string

func (namedProvider) Infer(context.Context, string) ([]byte, error) { return nil, nil }
func (n namedProvider) Model() string                               { return string(n) }

func newService(t *testing.T, ex extract.TextExtractor) (*Service, *jobs.Registry, *fakeScheduler) {
	t.Helper()
	reg := jobs.NewRegistry(nil, nil)
	sched := &fakeScheduler{}
	if ex == nil {
		ex = fakeExtractor{pages: []entity.Page{{Number: 1, Text: "SUPERMERCADO 245,90"}}}
	}
	svc := NewService(reg, sched, ex, llm.Providers{Offline: namedProvider("llama3.1:8b")}, 1<<20, nil)
	return svc, reg, sched
}

func statementPDF(t *testing.T) []byte {
	t.Helper()
	b, err := sample.Render(sample.DefaultStatement())
	require.NoError(t, err)
	return b
}

func TestSubmitDocumentCreatesAndEnqueues(t *testing.T) {
	svc, reg, sched := newService(t, nil)

	job, err := svc.SubmitDocument(context.Background(), Upload{Filename: "fatura.pdf", Data: statementPDF(t)})
	require.NoError(t, err)

	assert.Equal(t, constants.JobStatusWaiting, job.Status)
	assert.Equal(t, constants.ProviderOffline, job.Provider)
	assert.Equal(t, "llama3.1:8b", job.Model)
	assert.Equal(t, []string{job.ID}, sched.queued())

	in, err := reg.Input(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUPERMERCADO 245,90", in.Pages[0].Text)
}

func TestSubmitDocumentRejections(t *testing.T) {
	pdf := statementPDF(t)
	tests := []struct {
		name   string
		ex     extract.TextExtractor
		upload Upload
		want   string
	}{
		{"no text", fakeExtractor{err: extract.ErrNoText}, Upload{Filename: "scan.pdf", Data: pdf},
			"PDF contains no extractable text. This may be a scanned document or image-based PDF."},
		{"not a pdf", nil, Upload{Filename: "notes.pdf", Data: []byte("hello")}, "file is not a readable PDF document"},
		{"wrong extension", nil, Upload{Filename: "photo.png", Data: pdf}, "must be a PDF document"},
		{"missing file", nil, Upload{Filename: "fatura.pdf"}, "file is required"},
		{"too large", nil, Upload{Filename: "fatura.pdf", Data: make([]byte, 2<<20)}, "at most"},
		{"unknown provider", nil, Upload{Filename: "fatura.pdf", Provider: "cloud", Data: pdf}, "unknown provider"},
		{"unconfigured provider", nil, Upload{Filename: "fatura.pdf", Provider: "online", Data: pdf}, "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, reg, sched := newService(t, tt.ex)

			_, err := svc.SubmitDocument(context.Background(), tt.upload)
			require.Error(t, err)
			assert.Equal(t, 400, common.HTTPStatus(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, reg.List(), "rejected uploads leave no job behind")
			assert.Empty(t, sched.queued())
		})
	}
}

func TestSubmitDocumentBlankPDFWithFitz(t *testing.T) {
	blank, err := sample.Blank(2)
	require.NoError(t, err)
	svc, reg, _ := newService(t, extract.NewFitzExtractor(nil))

	_, err = svc.SubmitDocument(context.Background(), Upload{Filename: "scan.pdf", Data: blank})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrNoText)
	assert.Equal(t, 400, common.HTTPStatus(err))
	assert.Empty(t, reg.List())
}

func TestSubmitDocumentQueueClosed(t *testing.T) {
	svc, reg, sched := newService(t, nil)
	sched.err = common.ErrQueueClosed

	_, err := svc.SubmitDocument(context.Background(), Upload{Filename: "fatura.pdf", Data: statementPDF(t)})
	assert.ErrorIs(t, err, common.ErrQueueClosed)

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, constants.JobStatusError, list[0].Status)
	assert.Equal(t, UnqueuedMessage, list[0].ErrorMessage)
	assert.Equal(t, constants.ProgressQueued, list[0].Progress)
	assert.NotNil(t, list[0].FinishedAt)
}

func TestSubmitText(t *testing.T) {
	svc, reg, sched := newService(t, nil)

	job, err := svc.SubmitText(context.Background(), TextImport{
		Text: "05/02  SUPERMERCADO   245,90\r\n\fPOSTO SHELL 180,00\n\f",
	})
	require.NoError(t, err)
	assert.Equal(t, "text-import", job.Filename)
	assert.Len(t, sched.queued(), 1)

	in, err := reg.Input(job.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.Page{
		{Number: 1, Text: "05/02 SUPERMERCADO 245,90"},
		{Number: 2, Text: "POSTO SHELL 180,00"},
	}, in.Pages)

	_, err = svc.SubmitText(context.Background(), TextImport{Text: " \f \n"})
	require.Error(t, err)
	assert.Equal(t, 400, common.HTTPStatus(err))
}

func TestSubmitDirectory(t *testing.T) {
	svc, _, sched := newService(t, nil)
	root := t.TempDir()
	pdf := statementPDF(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.pdf"), pdf, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "copy-of-a.PDF"), pdf, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.pdf"), []byte("nope"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "hidden.pdf"), pdf, 0o644))

	results, stats, err := svc.SubmitDirectory(context.Background(), root, "", true)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, DirStats{Scanned: 4, Matched: 3, Submitted: 1, Deduplicated: 1, Failed: 1}, stats)
	assert.Len(t, sched.queued(), 1)
}

func TestInboxSubmitsNewFilesOnce(t *testing.T) {
	svc, _, sched := newService(t, nil)
	dir := t.TempDir()
	pdf := statementPDF(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.pdf"), pdf, 0o644))

	inbox := NewInbox(svc, WatchConfig{Dir: dir, Debounce: 20 * time.Millisecond, InitialScan: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sched.queued()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// same bytes under a new name are skipped
	require.NoError(t, os.WriteFile(filepath.Join(dir, "again.pdf"), pdf, 0o644))
	other, err := sample.Render(sample.Statement{Issuer: "Inter", Holder: "ANA", Pages: [][]sample.Line{{{Date: "01/03", Description: "PADARIA", Amount: "12,00"}}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "march.pdf"), other, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(sched.queued()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, sched.queued(), 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("inbox did not stop")
	}
}
