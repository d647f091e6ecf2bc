package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Dir         string
	Provider    string
	Debounce    time.Duration // coalesce rapid write/rename bursts
	InitialScan bool          // submit files already present at start
}

// Inbox submits PDFs dropped into a directory. Content already submitted
// (by sha256) is skipped.
type Inbox struct {
	svc    *Service
	cfg    WatchConfig
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash -> job id
}

func NewInbox(svc *Service, cfg WatchConfig, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	return &Inbox{svc: svc, cfg: cfg, logger: logger, seen: make(map[string]string)}
}

// Run watches the inbox until ctx ends.
func (in *Inbox) Run(ctx context.Context) error {
	if in.cfg.Dir == "" {
		return errors.New("inbox dir is required")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		in.logger.Error("ingest.inbox.watcher_failed", "error", err)
		return err
	}
	defer func() { _ = w.Close() }()

	var existing []string
	err = filepath.WalkDir(in.cfg.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if in.cfg.InitialScan && wanted(path) {
			existing = append(existing, path)
		}
		return nil
	})
	if err != nil {
		in.logger.Error("ingest.inbox.add_failed", "dir", in.cfg.Dir, "error", err)
		return err
	}
	in.logger.Info("ingest.inbox.watching", "dir", in.cfg.Dir, "provider", in.cfg.Provider)

	for _, p := range existing {
		in.submit(ctx, p)
	}

	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Has(fsnotify.Create) {
				// new subdirectories are watched too; Add fails harmlessly on files
				_ = w.Add(e.Name)
			}
			if !wanted(e.Name) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
				continue
			}
			pending[e.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(in.cfg.Debounce)
			} else {
				timer.Reset(in.cfg.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			for p := range pending {
				delete(pending, p)
				in.submit(ctx, p)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("ingest.inbox.watch_error", "error", err)
		}
	}
}

func (in *Inbox) submit(ctx context.Context, path string) {
	data, hash, err := readAndHash(path)
	if err != nil {
		// renamed away or removed before the debounce fired
		in.logger.Debug("ingest.inbox.unreadable", "path", path, "error", err)
		return
	}

	in.mu.Lock()
	prior, dup := in.seen[hash]
	if !dup {
		in.seen[hash] = ""
	}
	in.mu.Unlock()
	if dup {
		in.logger.Info("ingest.inbox.duplicate", "path", path, "job_id", prior)
		return
	}

	job, err := in.svc.SubmitDocument(ctx, Upload{Filename: filepath.Base(path), Provider: in.cfg.Provider, Data: data})
	if err != nil {
		in.logger.Warn("ingest.inbox.rejected", "path", path, "error", err)
		return
	}
	in.mu.Lock()
	in.seen[hash] = job.ID
	in.mu.Unlock()
	in.logger.Info("ingest.inbox.submitted", "path", path, "job_id", job.ID)
}

func wanted(path string) bool {
	return !IsHidden(path) && constants.AllowedExt(filepath.Ext(path))
}
