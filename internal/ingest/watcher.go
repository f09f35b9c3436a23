package ingest

// watcher.go - Landing-directory watcher. Mirrors the managed pipe's
// auto-ingest behavior: a raw file appearing in the landing directory is
// loaded into bronze once it has stopped growing.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DefaultSettle is how long a file must be quiet before it is ingested.
// Raw drops are written in one shot, so a short settle is enough.
const DefaultSettle = 500 * time.Millisecond

// Handler is invoked for each settled raw file.
type Handler func(ctx context.Context, path string) error

// Watcher watches a landing directory and invokes a handler for each new raw
// file once writes to it have settled.
type Watcher struct {
	dir     string
	settle  time.Duration
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over dir. A zero settle uses DefaultSettle.
// If logger is nil, a discard logger is used.
func NewWatcher(dir string, settle time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		handler: handler,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until the context is canceled. Handler errors are logged and do
// not stop the watch; only watcher failures or cancellation end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.Info("watching landing directory", "dir", w.dir)

	// Settled files are handed to this channel by per-file timers. done is
	// closed when the watch ends so a timer firing after that point doesn't
	// block forever on a channel nobody reads anymore.
	settled := make(chan string)
	done := make(chan struct{})
	defer close(done)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-fw.Events:
				if !ok {
					return fmt.Errorf("watcher event channel closed")
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if _, _, recognized := Classify(filepath.Base(event.Name)); !recognized {
					continue
				}
				w.schedule(event.Name, settled, done)
			case err, ok := <-fw.Errors:
				if !ok {
					return fmt.Errorf("watcher error channel closed")
				}
				w.logger.Warn("watcher error", "error", err)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case path := <-settled:
				if err := w.handler(ctx, path); err != nil {
					w.logger.Error("failed to ingest file", "file", filepath.Base(path), "error", err)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// schedule (re)arms the settle timer for a path. Each write pushes the timer
// back, so the file is only handed off once writes stop.
func (w *Watcher) schedule(path string, settled chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case settled <- path:
		case <-done:
		}
	})
}
