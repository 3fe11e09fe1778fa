package worker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autocrm/pkg/utils/logging"
)

// DefaultDebounce is the quiet period after the last file event before reloading
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc re-imports the watched knowledge file
type ReloadFunc func(ctx context.Context) error

// KnowledgeWatcher reloads a local knowledge file whenever it changes.
//
// The parent directory is watched instead of the file itself so that editors which
// replace the file by rename are still detected.
type KnowledgeWatcher struct {
	path     string
	reload   ReloadFunc
	debounce time.Duration
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// WatcherOption configures KnowledgeWatcher
type WatcherOption func(*KnowledgeWatcher)

// WithDebounce sets the quiet period before reloading
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *KnowledgeWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewKnowledgeWatcher creates a new watcher for the knowledge file at path
func NewKnowledgeWatcher(path string, reload ReloadFunc, opts ...WatcherOption) (*KnowledgeWatcher, error) {
	if reload == nil {
		return nil, goerr.New("reload function is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve knowledge file path", goerr.V("path", path))
	}

	w := &KnowledgeWatcher{
		path:     abs,
		reload:   reload,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching in a background goroutine. A watcher can be started only once.
func (w *KnowledgeWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return goerr.New("knowledge watcher already started or stopped", goerr.V("path", w.path))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create file watcher")
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return goerr.Wrap(err, "failed to watch knowledge directory", goerr.V("path", w.path))
	}
	w.watcher = watcher
	w.started = true

	logging.From(ctx).Info("Knowledge watcher starting",
		"path", w.path,
		"debounce", w.debounce.String())

	go w.run(ctx)

	return nil
}

// Stop signals the watcher to stop and waits for completion.
// It returns immediately when the watcher was never started and is safe to call more than once.
func (w *KnowledgeWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		started := w.started
		w.stopped = true
		close(w.stopCh)
		w.mu.Unlock()

		if !started {
			return
		}
		<-w.doneCh
		logging.Default().Info("Knowledge watcher stopped")
	})
}

func (w *KnowledgeWatcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() { _ = w.watcher.Close() }()

	logger := logging.From(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Knowledge watcher error", "error", err.Error())

		case <-timer.C:
			start := time.Now()
			if err := w.reload(ctx); err != nil {
				// keep the previous knowledge and wait for the next change
				logger.Error("Knowledge reload failed", "path", w.path, "error", err.Error())
				continue
			}
			logger.Info("Knowledge reloaded", "path", w.path, "duration", time.Since(start).String())

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}
