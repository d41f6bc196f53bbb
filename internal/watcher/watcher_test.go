package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingSink) Created(p string)      { r.add("created " + p) }
func (r *recordingSink) Deleted(p string)      { r.add("deleted " + p) }
func (r *recordingSink) Modified(p string)     { r.add("modified " + p) }
func (r *recordingSink) Moved(from, to string) { r.add(fmt.Sprintf("moved %s -> %s", from, to)) }

func (r *recordingSink) has(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == s {
			return true
		}
	}
	return false
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func startWatcher(t *testing.T, root string) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	w, err := New(root, sink, nil)
	require.NoError(t, err)
	assert.Equal(t, root, w.Root())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, nil)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return sink
}

func TestWatcher_CreateWriteRemove(t *testing.T) {
	root := t.TempDir()
	sink := startWatcher(t, root)

	p := filepath.Join(root, "index.rst")
	require.NoError(t, os.WriteFile(p, []byte("a"), 0o600))
	require.Eventually(t, func() bool { return sink.has("created " + p) }, 2*time.Second, 10*time.Millisecond)

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("more")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Eventually(t, func() bool { return sink.has("modified " + p) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(p))
	require.Eventually(t, func() bool { return sink.has("deleted " + p) }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RecursiveAndNewDirectories(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "guide")
	require.NoError(t, os.MkdirAll(existing, 0o750))
	sink := startWatcher(t, root)

	nested := filepath.Join(existing, "page.rst")
	require.NoError(t, os.WriteFile(nested, nil, 0o600))
	require.Eventually(t, func() bool { return sink.has("created " + nested) }, 2*time.Second, 10*time.Millisecond)

	fresh := filepath.Join(root, "api")
	require.NoError(t, os.Mkdir(fresh, 0o750))
	require.Eventually(t, func() bool { return sink.has("created " + fresh) }, 2*time.Second, 10*time.Millisecond)

	// Give the watcher a moment to register the new directory.
	inFresh := filepath.Join(fresh, "ref.rst")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(inFresh, []byte(time.Now().String()), 0o600)
		return sink.has("created "+inFresh) || sink.has("modified "+inFresh)
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWatcher_RenameIsPairedIntoMove(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.rst")
	require.NoError(t, os.WriteFile(a, nil, 0o600))
	sink := startWatcher(t, root)

	b := filepath.Join(root, "b.rst")
	require.NoError(t, os.Rename(a, b))

	want := fmt.Sprintf("moved %s -> %s", a, b)
	require.Eventually(t, func() bool { return sink.has(want) }, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, sink.snapshot(), "deleted "+a)
}

func TestWatcher_RenameOutOfTreeBecomesDelete(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	require.NoError(t, os.Mkdir(root, 0o750))
	a := filepath.Join(root, "a.rst")
	require.NoError(t, os.WriteFile(a, nil, 0o600))
	sink := startWatcher(t, root)

	require.NoError(t, os.Rename(a, filepath.Join(filepath.Dir(root), "elsewhere.rst")))
	require.Eventually(t, func() bool { return sink.has("deleted " + a) }, 2*time.Second, 10*time.Millisecond)
}

func TestDispatch_PairingRules(t *testing.T) {
	sink := &recordingSink{}
	w := &Watcher{sink: sink, log: logging.Discard()}

	assert.True(t, w.dispatch(fsnotify.Event{Name: "/r/a", Op: fsnotify.Rename}))
	assert.True(t, w.dispatch(fsnotify.Event{Name: "/r/b", Op: fsnotify.Rename}))
	assert.False(t, w.dispatch(fsnotify.Event{Name: "/r/c", Op: fsnotify.Create}))
	assert.False(t, w.dispatch(fsnotify.Event{Name: "/r/d", Op: fsnotify.Write}))
	assert.True(t, w.dispatch(fsnotify.Event{Name: "/r/e", Op: fsnotify.Rename}))
	assert.False(t, w.dispatch(fsnotify.Event{Name: "/r/f", Op: fsnotify.Chmod}))
	w.flushRename()

	assert.Equal(t, []string{
		"deleted /r/a",
		"moved /r/b -> /r/c",
		"modified /r/d",
		"deleted /r/e",
	}, sink.snapshot())
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), &recordingSink{}, nil)
	assert.Error(t, err)
}
