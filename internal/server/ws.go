package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI may be served from another origin
	},
}

// WSMessage is one frame pushed over /ws.
type WSMessage struct {
	Type string          `json:"type"` // "job"
	Job  *entity.JobView `json:"job,omitempty"`
}

// wsEvents pushes the same stream as /events. ?job_id= narrows it to one job.
func (s *Server) wsEvents(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID != "" {
		if _, err := s.registry.Get(jobID); err != nil {
			_ = c.Error(err)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws.upgrade.failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := s.events.Subscribe(jobID, s.registry.List)
	defer sub.Close()
	s.logger.Info("ws.connected", "remote", c.ClientIP(), "job_id", jobID)

	// reader: only control frames and close are expected
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(3 * s.opts.KeepAlive))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * s.opts.KeepAlive))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			s.logger.Info("ws.disconnected", "remote", c.ClientIP())
			return
		case j, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(wsWriteWait))
				return
			}
			view := j.View(s.now())
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(WSMessage{Type: "job", Job: &view}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
