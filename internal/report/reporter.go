// Package report logs a periodic summary of job and pool state.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// StatsSource counts jobs per status.
type StatsSource interface {
	Stats() map[constants.JobStatus]int
}

// PoolGauge exposes worker pool load.
type PoolGauge interface {
	Busy() int
	Pending() int
}

// Snapshot is one status report.
type Snapshot struct {
	Waiting    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
	Busy       int
	Pending    int
}

// Reporter writes a Snapshot to the log on a cron schedule.
type Reporter struct {
	jobs   StatsSource
	pool   PoolGauge
	cron   *cron.Cron
	logger *slog.Logger
}

func NewReporter(jobs StatsSource, pool PoolGauge, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		jobs:   jobs,
		pool:   pool,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start schedules reports. schedule is a five-field cron spec or a
// descriptor such as "@every 1m".
func (r *Reporter) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, func() { r.Report() }); err != nil {
		return fmt.Errorf("status report schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	r.logger.Info("report.scheduler.started", "schedule", schedule)
	return nil
}

// Run starts the schedule and blocks until ctx ends.
func (r *Reporter) Run(ctx context.Context, schedule string) error {
	if err := r.Start(schedule); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

// Stop waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("report.scheduler.stopped")
}

// Report logs and returns the current state.
func (r *Reporter) Report() Snapshot {
	stats := r.jobs.Stats()
	s := Snapshot{
		Waiting:    stats[constants.JobStatusWaiting],
		Processing: stats[constants.JobStatusProcessing],
		Completed:  stats[constants.JobStatusCompleted],
		Failed:     stats[constants.JobStatusError],
		Cancelled:  stats[constants.JobStatusCancelled],
	}
	if r.pool != nil {
		s.Busy = r.pool.Busy()
		s.Pending = r.pool.Pending()
	}
	r.logger.Info("report.status",
		"waiting", s.Waiting,
		"processing", s.Processing,
		"completed", s.Completed,
		"error", s.Failed,
		"cancelled", s.Cancelled,
		"workers_busy", s.Busy,
		"queue_depth", s.Pending,
	)
	return s
}
