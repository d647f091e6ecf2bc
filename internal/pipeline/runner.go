package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/artifact"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Renderer turns validated rows into the spreadsheet bytes.
type Renderer interface {
	Render(ctx context.Context, txs []entity.Transaction) ([]byte, error)
}

// Runner executes one job's stages: extract text, call the provider,
// validate the answer, render and store the spreadsheet. It implements
// async.Processor.
type Runner struct {
	registry  *jobs.Registry
	extractor extract.TextExtractor
	providers llm.Providers
	renderer  Renderer
	store     artifact.Store
	logger    *slog.Logger

	identifyBank bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithBankIdentification asks the job's provider for the issuer before
// extraction when the provider supports it.
func WithBankIdentification(on bool) Option {
	return func(r *Runner) { r.identifyBank = on }
}

func NewRunner(
	registry *jobs.Registry,
	extractor extract.TextExtractor,
	providers llm.Providers,
	renderer Renderer,
	store artifact.Store,
	logger *slog.Logger,
	opts ...Option,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		registry:  registry,
		extractor: extractor,
		providers: providers,
		renderer:  renderer,
		store:     store,
		logger:    logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Process runs jobID to a terminal state. Stage failures are recorded on the
// job, not returned; the returned error only reports that the job could not
// be finalized.
func (r *Runner) Process(ctx context.Context, jobID string) error {
	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	job, err := r.registry.Start(jobID, abort)
	if err != nil {
		if errors.Is(err, common.ErrInvalidState) {
			// cancelled while queued
			r.logger.Info("pipeline.skipped", "job_id", jobID, "reason", err.Error())
			return nil
		}
		return err
	}

	logger := r.logger.With("job_id", jobID, "provider", job.Provider)
	runCtx = common.WithLogger(runCtx, logger)
	start := time.Now()
	logger.Info("pipeline.start", "filename", job.Filename)

	res, err := r.execute(runCtx, job, logger)
	if err != nil {
		return r.fail(jobID, err, logger)
	}
	return r.commit(runCtx, jobID, res, logger, start)
}

type result struct {
	handle string
	txs    []entity.Transaction
	bank   string
}

func (r *Runner) execute(ctx context.Context, job entity.Job, logger *slog.Logger) (result, error) {
	// stage 1: text
	if err := r.checkpoint(ctx, job.ID); err != nil {
		return result{}, err
	}
	t := time.Now()
	pages, err := r.pages(ctx, job.ID)
	if err != nil {
		return result{}, stageErr(StageExtract, err)
	}
	logger.Info("pipeline.stage.ok", "stage", StageExtract, "pages", len(pages),
		"chars", entity.TotalChars(pages), "elapsed_ms", time.Since(t).Milliseconds())
	if err := r.advance(job.ID, constants.ProgressTextExtracted); err != nil {
		return result{}, err
	}

	// stage 2: provider
	if err := r.checkpoint(ctx, job.ID); err != nil {
		return result{}, err
	}
	if err := r.advance(job.ID, constants.ProgressAwaitingProvider); err != nil {
		return result{}, err
	}
	provider, err := r.providers.For(job.Provider)
	if err != nil {
		return result{}, stageErr(StageInfer, err)
	}
	bank := r.bank(ctx, provider, pages, logger)
	t = time.Now()
	raw, err := provider.Infer(ctx, entity.CombinePages(pages))
	if err != nil {
		return result{}, stageErr(StageInfer, err)
	}
	logger.Info("pipeline.stage.ok", "stage", StageInfer, "bytes", len(raw),
		"elapsed_ms", time.Since(t).Milliseconds())

	// stage 3: validate
	if err := r.checkpoint(ctx, job.ID); err != nil {
		return result{}, err
	}
	if err := r.advance(job.ID, constants.ProgressValidating); err != nil {
		return result{}, err
	}
	txs, rep, err := llm.ParseTransactions(raw, bank, logger)
	if err != nil {
		return result{}, stageErr(StageValidate, err)
	}
	logger.Info("pipeline.stage.ok", "stage", StageValidate,
		"received", rep.Received, "kept", rep.Kept, "duplicates", rep.Duplicates, "dropped", len(rep.Dropped))

	// stage 4: render
	if err := r.checkpoint(ctx, job.ID); err != nil {
		return result{}, err
	}
	t = time.Now()
	data, err := r.renderer.Render(ctx, txs)
	if err != nil {
		return result{}, stageErr(StageRender, err)
	}
	handle, err := r.store.Put(ctx, ArtifactKey(job), data)
	if err != nil {
		return result{}, stageErr(StageRender, err)
	}
	logger.Info("pipeline.stage.ok", "stage", StageRender, "artifact", handle,
		"bytes", len(data), "elapsed_ms", time.Since(t).Milliseconds())

	return result{handle: handle, txs: txs, bank: bank}, nil
}

// pages returns the text captured at intake, or extracts it now.
func (r *Runner) pages(ctx context.Context, jobID string) ([]entity.Page, error) {
	in, err := r.registry.Input(jobID)
	if err != nil {
		return nil, err
	}
	pages := in.Pages
	if len(pages) == 0 {
		if len(in.Document) == 0 {
			return nil, extract.ErrNoPages
		}
		if pages, err = r.extractor.Extract(ctx, in.Document); err != nil {
			return nil, err
		}
	}
	if !entity.HasText(pages) {
		return nil, extract.ErrNoText
	}
	return pages, nil
}

func (r *Runner) bank(ctx context.Context, provider llm.Provider, pages []entity.Page, logger *slog.Logger) string {
	if !r.identifyBank {
		return constants.UnknownBank
	}
	id, ok := provider.(llm.BankIdentifier)
	if !ok || len(pages) == 0 {
		return constants.UnknownBank
	}
	res, err := id.IdentifyBank(ctx, pages[0].Text)
	if err != nil {
		logger.Warn("pipeline.bank.failed", "error", err)
		return constants.UnknownBank
	}
	logger.Info("pipeline.bank.ok", "bank", res.Name, "confidence", res.Confidence)
	return res.Name
}

// checkpoint is consulted before each stage.
func (r *Runner) checkpoint(ctx context.Context, jobID string) error {
	if err := r.registry.Checkpoint(jobID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job aborted: %w", err)
	}
	return nil
}

func (r *Runner) advance(jobID string, progress int) error {
	_, err := r.registry.Update(jobID, func(j *entity.Job) error {
		j.Progress = progress
		return nil
	})
	return err
}

// commit decides the outcome under the job lock: a cancellation requested at
// any point before this wins over the finished artifact.
func (r *Runner) commit(ctx context.Context, jobID string, res result, logger *slog.Logger, start time.Time) error {
	cancelled := false
	snap, err := r.registry.Update(jobID, func(j *entity.Job) error {
		if j.CancelRequested {
			cancelled = true
			j.Status = constants.JobStatusCancelled
			return nil
		}
		j.Status = constants.JobStatusCompleted
		j.Artifact = res.handle
		j.TransactionCount = len(res.txs)
		j.Bank = res.bank
		return nil
	})
	if err != nil || cancelled {
		if derr := r.store.Delete(context.WithoutCancel(ctx), res.handle); derr != nil {
			logger.Warn("pipeline.artifact.delete_failed", "artifact", res.handle, "error", derr)
		}
	}
	if err != nil {
		logger.Error("pipeline.commit.failed", "error", err)
		return err
	}
	logger.Info("pipeline.done",
		"status", snap.Status,
		"transactions", snap.TransactionCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// fail records err on the job. With cancellation requested the job ends
// CANCELLED whatever the stage error was.
func (r *Runner) fail(jobID string, cause error, logger *slog.Logger) error {
	snap, err := r.registry.Update(jobID, func(j *entity.Job) error {
		if j.CancelRequested || errors.Is(cause, common.ErrCancelled) {
			j.Status = constants.JobStatusCancelled
			return nil
		}
		j.Status = constants.JobStatusError
		j.ErrorMessage = cause.Error()
		return nil
	})
	if err != nil {
		logger.Error("pipeline.finalize.failed", "cause", cause, "error", err)
		return err
	}
	if snap.Status == constants.JobStatusCancelled {
		logger.Info("pipeline.cancelled", "progress", snap.Progress)
		return nil
	}
	logger.Error("pipeline.stage.failed", "kind", KindOf(cause), "error", cause, "progress", snap.Progress)
	return nil
}

// HandlePanic is installed as the worker pool's panic handler.
func (r *Runner) HandlePanic(jobID string, recovered any) {
	_, err := r.registry.Update(jobID, func(j *entity.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("job %s already %s: %w", j.ID, j.Status, common.ErrInvalidState)
		}
		j.Status = constants.JobStatusError
		j.ErrorMessage = fmt.Sprintf("internal error: %v", recovered)
		return nil
	})
	if err != nil {
		r.logger.Warn("pipeline.panic.unrecorded", "job_id", jobID, "error", err)
	}
}

// ArtifactKey names a job's spreadsheet: <base>_<id>_transactions_<model>.xlsx.
func ArtifactKey(job entity.Job) string {
	base := filepath.Base(job.Filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "document"
	}
	model := job.Model
	if model == "" {
		model = string(job.Provider)
	}
	return fmt.Sprintf("%s_%s_transactions_%s.xlsx", base, job.ID, model)
}
