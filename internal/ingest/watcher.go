package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string
	Exts        []string
	InitialScan bool          // emit files already present under Roots
	Debounce    time.Duration // coalesce write bursts per path
}

// Watch emits paths of matching documents created or rewritten under the
// roots. New subdirectories are watched as they appear. Both channels close
// when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	exts := extSet(cfg.Exts)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && Allowed(path, exts) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			_ = w.Close()
			logger.Error("ingest.watch.add_root_failed", "root", root, "error", err)
			return nil, nil, err
		}
	}

	out := make(chan string, 64)
	errCh := make(chan error, 1)
	d := &debouncer{delay: cfg.Debounce, emit: func(p string) {
		select {
		case out <- p:
		case <-ctx.Done():
		}
	}}

	go func() {
		defer close(errCh)
		defer close(out)
		defer d.stop()
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		for _, p := range initial {
			d.emit(p)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("ingest.watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) && Allowed(e.Name, exts) && !IsHidden(e.Name) {
					d.touch(e.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	logger.Info("ingest.watch.started", "roots", cfg.Roots, "debounce", cfg.Debounce)
	return out, errCh, nil
}

// debouncer delays each path until no event has touched it for delay.
type debouncer struct {
	delay time.Duration
	emit  func(string)

	mu       sync.Mutex
	timers   map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

func (d *debouncer) touch(path string) {
	if d.delay <= 0 {
		d.emit(path)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timers == nil {
		d.timers = map[string]*time.Timer{}
	}
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, path)
		d.inflight.Add(1)
		d.mu.Unlock()
		defer d.inflight.Done()
		d.emit(path)
	})
}

// stop cancels pending paths and waits for any emit already under way.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	for p, t := range d.timers {
		t.Stop()
		delete(d.timers, p)
	}
	d.mu.Unlock()
	d.inflight.Wait()
}
