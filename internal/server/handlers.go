package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

// SubmitResponse answers an accepted upload.
type SubmitResponse struct {
	JobID  string              `json:"job_id"`
	Status constants.JobStatus `json:"status"`
	Job    entity.JobView      `json:"job"`
}

// TextRequest is the body of POST /jobs/text.
type TextRequest struct {
	Source   string `json:"source"`
	Text     string `json:"text" binding:"required"`
	Provider string `json:"provider"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"jobs":        len(s.registry.List()),
		"subscribers": s.events.Len(),
	})
}

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(common.NewInputError("multipart field \"file\" is required", err))
		return
	}
	if fh.Size > s.opts.MaxUploadBytes {
		_ = c.Error(common.NewInputError(fmt.Sprintf("file must be at most %d bytes", s.opts.MaxUploadBytes), nil))
		return
	}
	f, err := fh.Open()
	if err != nil {
		_ = c.Error(common.NewInputError("could not read uploaded file", err))
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, s.opts.MaxUploadBytes+1))
	if err != nil {
		_ = c.Error(common.NewInputError("could not read uploaded file", err))
		return
	}

	job, err := s.intake.SubmitDocument(c.Request.Context(), ingest.Upload{
		Filename: filepath.Base(fh.Filename),
		Provider: c.PostForm("provider"),
		Data:     data,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{JobID: job.ID, Status: job.Status, Job: job.View(s.now())})
}

func (s *Server) submitText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(common.NewInputError("body must be JSON with a non-empty \"text\"", err))
		return
	}
	job, err := s.intake.SubmitText(c.Request.Context(), ingest.TextImport{
		Source:   req.Source,
		Text:     req.Text,
		Provider: req.Provider,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, SubmitResponse{JobID: job.ID, Status: job.Status, Job: job.View(s.now())})
}

func (s *Server) listJobs(c *gin.Context) {
	views := viewsOf(s.registry.List(), s.now())
	c.JSON(http.StatusOK, gin.H{"jobs": views, "count": len(views)})
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.registry.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job.View(s.now()))
}

func (s *Server) cancelJob(c *gin.Context) {
	job, err := s.registry.RequestCancel(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, job.View(s.now()))
}

func (s *Server) download(c *gin.Context) {
	job, err := s.registry.Get(c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if job.Status != constants.JobStatusCompleted || job.Artifact == "" {
		_ = c.Error(fmt.Errorf("job %s has no spreadsheet (status %s): %w", job.ID, job.Status, common.ErrNotFound))
		return
	}
	data, err := s.store.Get(c.Request.Context(), job.Artifact)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			err = fmt.Errorf("load artifact: %w", err)
		}
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(job.Filename)))
	c.Data(http.StatusOK, constants.XLSXContentType, data)
}

// downloadName is "<base>_transactions.xlsx".
func downloadName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." {
		base = "invoice"
	}
	return base + "_transactions.xlsx"
}

func viewsOf(jobs []entity.Job, now time.Time) []entity.JobView {
	out := make([]entity.JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.View(now))
	}
	return out
}
