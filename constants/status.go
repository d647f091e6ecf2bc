package constants

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	JobStatusWaiting    JobStatus = "WAITING"    // accepted, not yet picked up by a worker
	JobStatusProcessing JobStatus = "PROCESSING" // a worker owns the job
	JobStatusCompleted  JobStatus = "COMPLETED"  // artifact committed
	JobStatusError      JobStatus = "ERROR"      // a stage failed
	JobStatusCancelled  JobStatus = "CANCELLED"  // cancellation observed
)

// IsTerminal reports whether no further transition may leave s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// Progress checkpoints reported while a job moves through the pipeline.
const (
	ProgressQueued           = 0
	ProgressTextExtracted    = 20
	ProgressAwaitingProvider = 50
	ProgressValidating       = 80
	ProgressDone             = 100
)
