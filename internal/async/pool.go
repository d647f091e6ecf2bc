package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Processor runs one job end to end.
type Processor interface {
	Process(ctx context.Context, jobID string) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, jobID string) error

func (f ProcessorFunc) Process(ctx context.Context, jobID string) error { return f(ctx, jobID) }

// PanicHandler is told about a job whose processing panicked.
type PanicHandler func(jobID string, recovered any)

// WorkerPool runs a fixed number of workers over an unbounded FIFO queue.
// Each worker handles exactly one job at a time.
type WorkerPool struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onPanic PanicHandler

	queue *Queue
	wg    sync.WaitGroup
	once  sync.Once
	busy  atomic.Int32

	mu     sync.Mutex
	closed bool
}

type Option func(*WorkerPool)

func WithWorkers(n int) Option {
	return func(p *WorkerPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(p *WorkerPool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithPanicHandler(h PanicHandler) Option {
	return func(p *WorkerPool) {
		p.onPanic = h
	}
}

func NewWorkerPool(proc Processor, logger *slog.Logger, opts ...Option) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &WorkerPool{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 10 * time.Minute,
		queue:   NewQueue(),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *WorkerPool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.spawn(i + 1)
		}
	})
}

func (p *WorkerPool) spawn(workerID int) {
	p.wg.Add(1)
	go p.run(workerID)
}

func (p *WorkerPool) run(workerID int) {
	defer p.wg.Done()
	p.logger.Info("pool.worker.started", "worker_id", workerID)

	for {
		jobID, ok := p.queue.Pop()
		if !ok {
			p.logger.Info("pool.worker.stopped", "worker_id", workerID)
			return
		}
		if p.process(workerID, jobID) {
			// the goroutine that panicked is retired; a fresh one takes its slot
			p.logger.Warn("pool.worker.restarting", "worker_id", workerID)
			p.spawn(workerID)
			return
		}
	}
}

func (p *WorkerPool) process(workerID int, jobID string) (panicked bool) {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	ctx = common.WithJobID(ctx, jobID)

	defer func() {
		if r := recover(); r != nil {
			panicked = true
			p.logger.Error("pool.worker.panic",
				"worker_id", workerID,
				"job_id", jobID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			if p.onPanic != nil {
				p.onPanic(jobID, r)
			}
		}
	}()

	start := time.Now()
	if err := p.proc.Process(ctx, jobID); err != nil {
		p.logger.Error("pool.job.failed", "worker_id", workerID, "job_id", jobID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return false
	}
	p.logger.Info("pool.job.done", "worker_id", workerID, "job_id", jobID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return false
}

// Enqueue hands jobID to the pool. It never blocks.
func (p *WorkerPool) Enqueue(_ context.Context, jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.queue.Push(jobID) {
		p.logger.Warn("pool.enqueue.rejected", "job_id", jobID, "reason", "shutting down")
		return common.ErrQueueClosed
	}
	p.logger.Info("pool.enqueued", "job_id", jobID, "pending", p.queue.Len())
	return nil
}

// Busy returns how many workers are running a job right now.
func (p *WorkerPool) Busy() int { return int(p.busy.Load()) }

// Pending returns how many jobs wait for a worker.
func (p *WorkerPool) Pending() int { return p.queue.Len() }

// Workers returns the pool size.
func (p *WorkerPool) Workers() int { return p.workers }

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.queue.Close()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("pool.shutdown.interrupted", "pending", p.queue.Len(), "busy", p.Busy())
		return ctx.Err()
	case <-done:
		p.logger.Info("pool.shutdown.complete")
		return nil
	}
}
