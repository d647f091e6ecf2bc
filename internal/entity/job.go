package entity

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Job is one document's processing record. Values of this type handed out by
// the registry are snapshots; mutating them changes nothing.
type Job struct {
	ID               string              `json:"id"`
	Filename         string              `json:"filename"`
	Provider         constants.Provider  `json:"provider"`
	Model            string              `json:"model_name"`
	Status           constants.JobStatus `json:"status"`
	Progress         int                 `json:"progress"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	FinishedAt       *time.Time          `json:"finished_at,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	Artifact         string              `json:"-"`
	CancelRequested  bool                `json:"cancel_requested"`
	TransactionCount int                 `json:"transaction_count"`
	Bank             string              `json:"bank,omitempty"`
	Version          uint64              `json:"version"`
}

// JobView is the wire shape of a job for list, detail and push endpoints.
type JobView struct {
	Job
	ElapsedTime string `json:"elapsed_time"`
	HasExcel    bool   `json:"has_excel"`
	DownloadURL string `json:"download_url,omitempty"`
}

// View renders j for clients. Elapsed time runs until FinishedAt, or until now
// while the job is live.
func (j Job) View(now time.Time) JobView {
	end := now
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	v := JobView{
		Job:         j,
		ElapsedTime: FormatElapsed(end.Sub(j.CreatedAt)),
		HasExcel:    j.Status == constants.JobStatusCompleted && j.Artifact != "",
	}
	if v.HasExcel {
		v.DownloadURL = "/jobs/" + j.ID + "/download"
	}
	return v
}

// FormatElapsed renders d as "42s", "3m 07s" or "1h 05m".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
}
