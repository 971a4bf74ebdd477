package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"codegraph/internal/lsp"
	"codegraph/internal/logging"
)

// Watcher keeps a Workspace's open documents in sync with on-disk changes
// (spec.md §4.3's optional file-watcher sync), adapted from the VCS
// branch watcher's fsnotify lifecycle.
type Watcher struct {
	fsw     *fsnotify.Watcher
	ws      *Workspace
	lang    string
	ctx     context.Context
	cancel  context.CancelFunc
	stopCh  chan struct{}
	doneCh  chan struct{}
	changed chan struct{}
	started bool
	mu      sync.Mutex
}

// NewWatcher builds a watcher over ws's root for the given language, but
// does not start it.
func NewWatcher(ws *Workspace, lang string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := addRecursive(fsw, ws.Root); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:    fsw,
		ws:     ws,
		lang:   lang,
		ctx:    ctx,
		cancel: cancel,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		changed: make(chan struct{}, 1),
	}
	ws.watcher = w
	return w, nil
}

// Changed signals (non-blocking, coalesced) whenever the watcher applies a
// document sync for a matching file, letting a caller like a --watch CLI
// loop debounce and re-run a crawl instead of polling.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *Watcher) notifyChanged() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// addRecursive registers every non-skipped directory under root with the
// fsnotify watcher; fsnotify has no native recursive mode.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		return nil
	})
}

// Start begins the watch loop in a background goroutine. Idempotent.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("workspace: watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = addRecursive(w.fsw, ev.Name)
			return
		}
	}

	if !w.matches(ev.Name) {
		return
	}
	uri := lsp.PathToURI(ev.Name)

	switch {
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		if err := w.ws.Client.DidClose(w.ctx, uri); err != nil {
			logging.Debug().Err(err).Str("file", ev.Name).Msg("workspace: didClose failed")
		}
		w.notifyChanged()
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		content, err := readUTF8(ev.Name)
		if err != nil {
			return
		}
		if w.ws.Client.IsOpen(uri) {
			err = w.ws.Client.DidChange(w.ctx, uri, content, languageIDFor(w.lang))
		} else if len(content) > 0 {
			err = w.ws.Client.DidOpen(w.ctx, uri, content, languageIDFor(w.lang))
		}
		if err != nil {
			logging.Debug().Err(err).Str("file", ev.Name).Msg("workspace: sync failed")
		}
		w.notifyChanged()
	}
}

func (w *Watcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range langExtensions[w.lang] {
		if ext == e {
			return true
		}
	}
	return false
}

// Stop halts the watch loop and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	w.cancel()

	if started {
		<-w.doneCh
	}
	return w.fsw.Close()
}
