package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// DefaultMaxBytes caps a submission when no limit is configured.
const DefaultMaxBytes = 20 << 20

// UnqueuedMessage is recorded on a job the scheduler refused.
const UnqueuedMessage = "service shutting down, job was not queued"

// Scheduler accepts job ids for processing.
type Scheduler interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Upload is a document submitted for extraction.
type Upload struct {
	Filename string
	Provider string
	Data     []byte
}

// TextImport is statement text submitted without a document; form feeds
// separate pages.
type TextImport struct {
	Source   string
	Text     string
	Provider string
}

// Service validates submissions, creates their jobs and hands them to the
// scheduler. Rejected submissions never create a job.
type Service struct {
	registry  *jobs.Registry
	scheduler Scheduler
	extractor extract.TextExtractor
	providers llm.Providers
	maxBytes  int64
	logger    *slog.Logger
}

func NewService(
	registry *jobs.Registry,
	scheduler Scheduler,
	extractor extract.TextExtractor,
	providers llm.Providers,
	maxBytes int64,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		registry:  registry,
		scheduler: scheduler,
		extractor: extractor,
		providers: providers,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// SubmitDocument checks that u is a readable PDF with text, then creates and
// enqueues its job. The probed pages travel with the job so the runner does
// not extract twice.
func (s *Service) SubmitDocument(ctx context.Context, u Upload) (entity.Job, error) {
	v := common.NewValidator().
		Field("filename", u.Filename, common.Required, common.MaxLength(255), common.DocumentExtension).
		Field("file", u.Data, common.Required, common.MaxBytes(s.maxBytes))
	if err := common.ValidateAndReturnError(v); err != nil {
		return entity.Job{}, err
	}
	provider, err := s.provider(u.Provider)
	if err != nil {
		return entity.Job{}, err
	}

	info, err := extract.Inspect(u.Data)
	if err != nil {
		s.logger.Info("ingest.rejected", "filename", u.Filename, "reason", err.Error())
		return entity.Job{}, common.NewInputError("file is not a readable PDF document", err)
	}

	pages, err := s.extractor.Extract(ctx, u.Data)
	if err != nil {
		s.logger.Info("ingest.rejected", "filename", u.Filename, "pages", info.Pages, "reason", err.Error())
		if errors.Is(err, extract.ErrNoText) || errors.Is(err, extract.ErrNoPages) {
			return entity.Job{}, common.NewInputError(err.Error(), err)
		}
		return entity.Job{}, common.NewInputError("could not read text from PDF", err)
	}

	return s.submit(ctx, u.Filename, provider, jobs.Input{Pages: pages})
}

// SubmitText creates a job from plain statement text.
func (s *Service) SubmitText(ctx context.Context, in TextImport) (entity.Job, error) {
	if strings.TrimSpace(in.Source) == "" {
		in.Source = "text-import"
	}
	v := common.NewValidator().
		Field("source", in.Source, common.MaxLength(255)).
		Field("text", in.Text, common.Required).
		Field("text", []byte(in.Text), common.MaxBytes(s.maxBytes))
	if err := common.ValidateAndReturnError(v); err != nil {
		return entity.Job{}, err
	}
	provider, err := s.provider(in.Provider)
	if err != nil {
		return entity.Job{}, err
	}

	pages := entity.SplitPages(in.Text)
	for i := range pages {
		pages[i].Text = extract.Normalize(pages[i].Text)
	}
	if !entity.HasText(pages) {
		return entity.Job{}, common.NewInputError(extract.ErrNoText.Error(), extract.ErrNoText)
	}
	return s.submit(ctx, in.Source, provider, jobs.Input{Pages: pages})
}

func (s *Service) provider(raw string) (constants.Provider, error) {
	p, err := constants.ParseProvider(raw)
	if err != nil {
		return "", common.NewInputError(err.Error(), err)
	}
	if _, err := s.providers.For(p); err != nil {
		return "", common.NewInputError(err.Error(), err)
	}
	return p, nil
}

func (s *Service) submit(ctx context.Context, filename string, provider constants.Provider, in jobs.Input) (entity.Job, error) {
	job := s.registry.Create(jobs.CreateParams{
		Filename: filename,
		Provider: provider,
		Model:    s.providers.ModelFor(provider),
		Input:    in,
	})
	if err := s.scheduler.Enqueue(ctx, job.ID); err != nil {
		// nobody will pick the job up
		if _, uerr := s.registry.Update(job.ID, func(j *entity.Job) error {
			j.Status = constants.JobStatusError
			j.ErrorMessage = UnqueuedMessage
			return nil
		}); uerr != nil {
			s.logger.Warn("ingest.fail_unqueued.failed", "job_id", job.ID, "error", uerr)
		}
		return entity.Job{}, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	s.logger.Info("ingest.accepted",
		"job_id", job.ID,
		"filename", filename,
		"provider", provider,
		"pages", len(in.Pages),
		"chars", entity.TotalChars(in.Pages),
	)
	return job, nil
}
