// Package ingest discovers documents on the local filesystem for batch
// profiling.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/guidify/constants"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// FileError is a path the walk could not read.
type FileError struct {
	Path string
	Err  string
}

// ScanOptions filters a directory walk. Empty Exts means every extension the
// text extractor accepts.
type ScanOptions struct {
	Exts       []string
	SkipHidden bool
}

// ScanDirectory walks root and returns the matching files in lexical order.
// Unreadable entries are reported and skipped.
func ScanDirectory(root string, opts ScanOptions) ([]string, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}
	exts := extSet(opts.Exts)

	var (
		paths  []string
		failed []FileError
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			failed = append(failed, FileError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Allowed(path, exts) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, failed, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, failed, stats, nil
}

func extSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return constants.AllowedExtensions
	}
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		if e = constants.NormalizeExt(e); e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}

// Allowed reports whether path carries one of exts.
func Allowed(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
