// Package watcher delivers recursive filesystem change events for one source
// tree to an event sink.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
)

// renamePairWindow is how long a Rename waits for the Create that completes
// a move before it is delivered as a deletion.
const renamePairWindow = 50 * time.Millisecond

// Sink receives one call per filesystem event, in delivery order.
// Implementations must not block indefinitely.
type Sink interface {
	Created(path string)
	Deleted(path string)
	Modified(path string)
	Moved(from, to string)
}

// Watcher watches a directory tree and dispatches its events to a Sink.
type Watcher struct {
	fsw  *fsnotify.Watcher
	root string
	sink Sink
	log  *slog.Logger

	// pendingRename is the origin of a Rename still waiting for its Create.
	pendingRename string
}

// New creates a Watcher for root and every directory below it.
func New(root string, sink Sink, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:  fsw,
		root: root,
		sink: sink,
		log:  logging.Component(log, "watcher").With("root", root),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Run starts the watch loop. It blocks until the context is canceled or the
// watcher is closed. Errors from the underlying watcher are passed to the
// optional errFn callback.
func (w *Watcher) Run(ctx context.Context, errFn func(error)) {
	var pairTimer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-pairTimer:
			pairTimer = nil
			w.flushRename()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.dispatch(event) {
				pairTimer = time.After(renamePairWindow)
			} else if w.pendingRename == "" {
				pairTimer = nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// dispatch forwards one event. It returns true when a Rename was parked
// waiting for its matching Create.
func (w *Watcher) dispatch(event fsnotify.Event) bool {
	w.log.Debug("Event", "op", event.Op.String(), "path", event.Name)

	switch {
	case event.Has(fsnotify.Create):
		w.watchIfDir(event.Name)
		if from := w.pendingRename; from != "" {
			w.pendingRename = ""
			w.sink.Moved(from, event.Name)
			return false
		}
		w.sink.Created(event.Name)
	case event.Has(fsnotify.Rename):
		w.flushRename()
		w.pendingRename = event.Name
		return true
	case event.Has(fsnotify.Remove):
		w.flushRename()
		w.sink.Deleted(event.Name)
	case event.Has(fsnotify.Write):
		w.flushRename()
		w.sink.Modified(event.Name)
	}
	return false
}

// flushRename delivers a parked Rename as a deletion of its origin.
func (w *Watcher) flushRename() {
	if from := w.pendingRename; from != "" {
		w.pendingRename = ""
		w.sink.Deleted(from)
	}
}

func (w *Watcher) watchIfDir(path string) {
	fi, err := os.Lstat(path)
	if err != nil || !fi.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.log.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

// addTree adds dir and every directory below it. Symlinked directories are
// not followed.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(p)
	})
}
