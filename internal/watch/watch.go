// Package watch enqueues teaser jobs for video files dropped into the
// input directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Siddharth-vip/teasergen/internal/config"
	"github.com/Siddharth-vip/teasergen/internal/jobs"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

// settlePoll is a var so tests can shorten the wait.
var (
	settlePoll    = 2 * time.Second
	settleRetries = 150
)

// Watcher monitors the configured input directory and enqueues a job for
// every new video file once it stops growing.
type Watcher struct {
	cfg   *config.Config
	store *jobs.Store
	log   *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:   cfg,
		store: store,
		log:   logger,
		seen:  make(map[string]struct{}),
	}
}

// Run watches until ctx is cancelled. Files already present at startup are
// enqueued as well so a restart never skips pending inputs.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.cfg.Paths.InputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure input directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching for new videos", "dir", dir)

	if err := w.scanExisting(ctx, dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.consider(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) scanExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan input directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.consider(ctx, filepath.Join(dir, e.Name()))
	}
	return nil
}

func (w *Watcher) consider(ctx context.Context, path string) {
	if !w.cfg.SupportsFormat(path) {
		return
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	w.mu.Lock()
	if _, ok := w.seen[path]; ok {
		w.mu.Unlock()
		return
	}
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	go func() {
		if err := w.enqueueWhenSettled(ctx, path); err != nil && ctx.Err() == nil {
			w.log.Error("enqueue watched file", "path", path, "error", err)
			w.mu.Lock()
			delete(w.seen, path)
			w.mu.Unlock()
		}
	}()
}

// enqueueWhenSettled waits until the file size holds steady across two
// polls, so half-copied files are not picked up.
func (w *Watcher) enqueueWhenSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	for i := 0; i < settleRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePoll):
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > 0 && info.Size() == lastSize {
			job, err := w.store.Enqueue(ctx, path, w.defaultPrefs())
			if err != nil {
				return err
			}
			w.log.Info("enqueued watched video", "path", path, "job_id", job.ID)
			return nil
		}
		lastSize = info.Size()
	}
	return fmt.Errorf("file %s never stopped growing", path)
}

func (w *Watcher) defaultPrefs() types.Preferences {
	return types.Preferences{
		Duration:  w.cfg.DefaultDuration(),
		Tone:      types.ToneProfessional,
		Subtitles: w.cfg.Teaser.Subtitles,
	}
}
