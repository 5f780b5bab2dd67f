package server

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/graph"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// ReadFunc reads a graph document from path.
type ReadFunc func(path string) (*graph.Graph, []byte, error)

// FileWatcher serves a document file and reloads it when it changes on disk.
// A rewrite that fails to parse is logged and the previous document is kept.
type FileWatcher struct {
	path    string
	read    ReadFunc
	watcher *fsnotify.Watcher
	logger  *log.Logger

	mu  sync.RWMutex
	g   *graph.Graph
	doc []byte

	stop      chan struct{}
	closeOnce sync.Once
}

// WatchFile reads path and starts watching it until ctx is done or Close is
// called.
func WatchFile(ctx context.Context, path string, read ReadFunc, logger *log.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	g, doc, err := read(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInternal, err, "create file watcher")
	}
	// Watch the directory so atomic saves (write temp, rename) are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, gerrors.Wrap(gerrors.ErrCodeInternal, err, "watch %s", path)
	}

	w := &FileWatcher{
		path:    path,
		read:    read,
		watcher: watcher,
		logger:  logger,
		g:       g,
		doc:     doc,
		stop:    make(chan struct{}),
	}
	go w.loop(ctx)
	logger.Debug("Watching document", "path", path)
	return w, nil
}

// Load returns the current document. It satisfies [Loader].
func (w *FileWatcher) Load(context.Context) (*graph.Graph, []byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.g, w.doc, nil
}

// Close stops watching.
func (w *FileWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stop)
		err = w.watcher.Close()
	})
	return err
}

func (w *FileWatcher) loop(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *FileWatcher) reload() {
	g, doc, err := w.read(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous document", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.g, w.doc = g, doc
	w.mu.Unlock()
	w.logger.Info("Reloaded document", "path", w.path, "primary", g.PrimaryCount(), "derived", g.DerivedCount())
}
