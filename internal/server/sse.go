package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// allEvents streams every job.
func (s *Server) allEvents(c *gin.Context) {
	s.stream(c, "")
}

// jobEvents streams one job.
func (s *Server) jobEvents(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.registry.Get(id); err != nil {
		_ = c.Error(err)
		return
	}
	s.stream(c, id)
}

// stream writes the current snapshot set, then one "job" event per change.
// A "ping" event is sent every KeepAlive so proxies keep the connection.
func (s *Server) stream(c *gin.Context, jobID string) {
	sub := s.events.Subscribe(jobID, s.registry.List)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case j, ok := <-sub.Events():
			if !ok {
				// dropped by the broadcaster; the client reconnects and gets a fresh snapshot
				return false
			}
			c.SSEvent("job", j.View(s.now()))
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", gin.H{"time": t.UTC().Format(time.RFC3339)})
			return true
		}
	})
}
