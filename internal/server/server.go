package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/invoice-extractor/internal/artifact"
	"github.com/joseph-ayodele/invoice-extractor/internal/events"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
)

// Options tunes the HTTP surface.
type Options struct {
	KeepAlive      time.Duration // interval between SSE/WebSocket pings
	MaxUploadBytes int64
}

// Server is the HTTP gateway over the registry, intake and broadcaster.
type Server struct {
	registry *jobs.Registry
	intake   *ingest.Service
	events   *events.Broadcaster
	store    artifact.Store
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	router *gin.Engine
}

func NewServer(
	registry *jobs.Registry,
	intake *ingest.Service,
	broadcaster *events.Broadcaster,
	store artifact.Store,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = ingest.DefaultMaxBytes
	}
	s := &Server{
		registry: registry,
		intake:   intake,
		events:   broadcaster,
		store:    store,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = s.opts.MaxUploadBytes
	r.Use(RequestID(), RequestLogger(s.logger), Recovery(s.logger), ErrorMiddleware(s.logger))

	r.GET("/healthz", s.health)
	r.POST("/upload", s.upload)
	r.POST("/jobs/text", s.submitText)
	r.GET("/jobs", s.listJobs)
	r.GET("/jobs/:id", s.getJob)
	r.POST("/jobs/:id/cancel", s.cancelJob)
	r.GET("/jobs/:id/download", s.download)
	r.GET("/jobs/:id/events", s.jobEvents)
	r.GET("/events", s.allEvents)
	r.GET("/ws", s.wsEvents)
	return r
}

// HTTPServer returns the gateway's http.Server. Shutdown detaches push
// subscribers first, so open event streams end instead of holding the
// shutdown until its deadline.
func (s *Server) HTTPServer(addr string) *http.Server {
	srv := NewHTTPServer(addr, s.router)
	srv.RegisterOnShutdown(s.events.Close)
	return srv
}

// NewHTTPServer wraps h with the timeouts used for the gateway. Streaming
// endpoints rule out a write timeout.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
