package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Publisher receives a snapshot after every committed mutation.
type Publisher interface {
	Publish(job entity.Job)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(entity.Job)

func (f PublisherFunc) Publish(j entity.Job) { f(j) }

// Input is the document payload a job was created with. It is released once
// the job is terminal.
type Input struct {
	Document []byte
	Pages    []entity.Page
}

// CreateParams describes a new job.
type CreateParams struct {
	Filename string
	Provider constants.Provider
	Model    string
	Input    Input
}

type record struct {
	mu    sync.Mutex
	job   entity.Job
	input Input
	abort context.CancelFunc
}

// Registry is the in-memory job store. Each record carries its own lock, so
// mutations on different jobs never contend; the registry lock only guards
// the index.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string

	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// NewRegistry creates an empty registry. A nil publisher discards events.
func NewRegistry(publisher Publisher, logger *slog.Logger, opts ...Option) *Registry {
	if publisher == nil {
		publisher = PublisherFunc(func(entity.Job) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		records:   make(map[string]*record),
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     shortID,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Create registers a WAITING job at progress 0.
func (r *Registry) Create(p CreateParams) entity.Job {
	now := r.now().UTC()

	r.mu.Lock()
	id := r.newID()
	for _, taken := r.records[id]; taken; _, taken = r.records[id] {
		id = r.newID()
	}
	rec := &record{
		job: entity.Job{
			ID:        id,
			Filename:  p.Filename,
			Provider:  p.Provider,
			Model:     p.Model,
			Status:    constants.JobStatusWaiting,
			Progress:  constants.ProgressQueued,
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		},
		input: p.Input,
	}
	r.records[id] = rec
	r.order = append(r.order, id)
	snap := rec.job
	r.mu.Unlock()

	r.logger.Info("jobs.created", "job_id", id, "filename", p.Filename, "provider", p.Provider, "model", p.Model)
	r.publisher.Publish(snap)
	return snap
}

func (r *Registry) lookup(id string) (*record, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

// Get returns a snapshot of job id.
func (r *Registry) Get(id string) (entity.Job, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return entity.Job{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job, nil
}

// List returns snapshots of every job in creation order.
func (r *Registry) List() []entity.Job {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.order))
	for _, id := range r.order {
		recs = append(recs, r.records[id])
	}
	r.mu.RUnlock()

	out := make([]entity.Job, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.job)
		rec.mu.Unlock()
	}
	return out
}

// Input returns the payload job id was created with.
func (r *Registry) Input(id string) (Input, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return Input{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.input, nil
}

// Update applies fn to a copy of the job under the job's lock and commits the
// result if fn succeeds and the change respects the state graph. Progress may
// not decrease. The new snapshot is published after the lock is released.
func (r *Registry) Update(id string, fn func(*entity.Job) error) (entity.Job, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return entity.Job{}, err
	}

	rec.mu.Lock()
	snap, err := r.commitLocked(rec, fn)
	rec.mu.Unlock()
	if err != nil {
		return entity.Job{}, err
	}
	r.publisher.Publish(snap)
	return snap, nil
}

// commitLocked must be called with rec.mu held.
func (r *Registry) commitLocked(rec *record, fn func(*entity.Job) error) (entity.Job, error) {
	old := rec.job
	next := old
	if err := fn(&next); err != nil {
		return entity.Job{}, err
	}

	if next.ID != old.ID || next.Provider != old.Provider || !next.CreatedAt.Equal(old.CreatedAt) {
		return entity.Job{}, fmt.Errorf("job %s: immutable field changed: %w", old.ID, common.ErrInvalidState)
	}
	if next.Status != old.Status || next.Status == constants.JobStatusProcessing {
		if !CanTransition(old.Status, next.Status) {
			return entity.Job{}, fmt.Errorf("job %s: %s -> %s: %w", old.ID, old.Status, next.Status, common.ErrInvalidState)
		}
	} else if old.Status.IsTerminal() {
		return entity.Job{}, fmt.Errorf("job %s is %s: %w", old.ID, old.Status, common.ErrInvalidState)
	}
	if next.Progress < old.Progress {
		return entity.Job{}, fmt.Errorf("job %s: progress %d -> %d: %w", old.ID, old.Progress, next.Progress, common.ErrInvalidState)
	}
	if old.CancelRequested && !next.CancelRequested {
		return entity.Job{}, fmt.Errorf("job %s: cancel flag cleared: %w", old.ID, common.ErrInvalidState)
	}
	if next.Status == constants.JobStatusCompleted {
		next.Progress = constants.ProgressDone
	}

	now := r.now().UTC()
	next.UpdatedAt = now
	next.Version = old.Version + 1
	if next.Status.IsTerminal() {
		next.FinishedAt = &now
		rec.input = Input{}
		rec.abort = nil
	}
	rec.job = next
	return next, nil
}

// Start moves a WAITING job to PROCESSING and records abort, which
// RequestCancel invokes to interrupt in-flight work. Jobs that already left
// WAITING (cancelled while queued) yield ErrInvalidState.
func (r *Registry) Start(id string, abort context.CancelFunc) (entity.Job, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return entity.Job{}, err
	}

	rec.mu.Lock()
	snap, err := r.commitLocked(rec, func(j *entity.Job) error {
		if j.Status != constants.JobStatusWaiting {
			return fmt.Errorf("job %s is %s: %w", j.ID, j.Status, common.ErrInvalidState)
		}
		j.Status = constants.JobStatusProcessing
		return nil
	})
	if err == nil {
		rec.abort = abort
	}
	rec.mu.Unlock()
	if err != nil {
		return entity.Job{}, err
	}
	r.publisher.Publish(snap)
	return snap, nil
}

// Checkpoint returns ErrCancelled once cancellation was requested for id.
func (r *Registry) Checkpoint(id string) error {
	j, err := r.Get(id)
	if err != nil {
		return err
	}
	if j.CancelRequested || j.Status == constants.JobStatusCancelled {
		return fmt.Errorf("job %s: %w", id, common.ErrCancelled)
	}
	return nil
}

// RequestCancel sets the cancellation flag. A WAITING job is cancelled on the
// spot since no worker owns it yet. A PROCESSING job keeps its status until the
// runner observes the flag; its abort func is called so a blocked provider call
// returns early. Terminal jobs yield ErrInvalidState.
func (r *Registry) RequestCancel(id string) (entity.Job, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return entity.Job{}, err
	}

	var abort context.CancelFunc
	rec.mu.Lock()
	snap, err := r.commitLocked(rec, func(j *entity.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("job %s is %s: %w", j.ID, j.Status, common.ErrInvalidState)
		}
		if j.CancelRequested {
			return fmt.Errorf("job %s: cancel already requested: %w", j.ID, common.ErrInvalidState)
		}
		j.CancelRequested = true
		if j.Status == constants.JobStatusWaiting {
			j.Status = constants.JobStatusCancelled
		}
		return nil
	})
	if err == nil {
		abort = rec.abort
	}
	rec.mu.Unlock()
	if err != nil {
		return entity.Job{}, err
	}

	if abort != nil {
		abort()
	}
	r.logger.Info("jobs.cancel_requested", "job_id", id, "status", snap.Status)
	r.publisher.Publish(snap)
	return snap, nil
}

// Stats counts jobs per status.
func (r *Registry) Stats() map[constants.JobStatus]int {
	out := make(map[constants.JobStatus]int, 5)
	for _, j := range r.List() {
		out[j.Status]++
	}
	return out
}
