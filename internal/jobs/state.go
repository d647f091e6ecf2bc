package jobs

import "github.com/joseph-ayodele/invoice-extractor/constants"

var transitions = map[constants.JobStatus][]constants.JobStatus{
	constants.JobStatusWaiting: {
		constants.JobStatusProcessing,
		constants.JobStatusError, // never reached a worker
		constants.JobStatusCancelled,
	},
	constants.JobStatusProcessing: {
		constants.JobStatusProcessing,
		constants.JobStatusCompleted,
		constants.JobStatusError,
		constants.JobStatusCancelled,
	},
}

// CanTransition reports whether a job may move from one status to another.
// PROCESSING -> PROCESSING is the progress-update edge; terminal states have no
// outgoing edges.
func CanTransition(from, to constants.JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
