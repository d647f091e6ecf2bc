package ingest

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

type FileResult struct {
	Path  string
	JobID string
	Hash  string
	Err   string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Submitted    uint32
	Deduplicated uint32
	Failed       uint32
}

// SubmitDirectory walks root and submits every PDF under it with provider.
// Files with identical content are submitted once. Per-file failures are
// reported in the results; only a walk failure aborts.
func (s *Service) SubmitDirectory(ctx context.Context, root, provider string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		results []FileResult
		stats   DirStats
		seen    = map[string]string{}
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		res := FileResult{Path: path}
		data, hash, err := readAndHash(path)
		if err != nil {
			res.Err = err.Error()
			stats.Failed++
			results = append(results, res)
			return nil
		}
		res.Hash = hash
		if prior, dup := seen[hash]; dup {
			res.JobID = prior
			stats.Deduplicated++
			results = append(results, res)
			return nil
		}

		job, err := s.SubmitDocument(ctx, Upload{Filename: filepath.Base(path), Provider: provider, Data: data})
		if err != nil {
			res.Err = err.Error()
			stats.Failed++
		} else {
			res.JobID = job.ID
			seen[hash] = job.ID
			stats.Submitted++
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		s.logger.Error("ingest.directory.failed", "root", root, "error", err)
		return results, stats, err
	}
	s.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"submitted", stats.Submitted,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
