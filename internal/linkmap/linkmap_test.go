package linkmap

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "top-level file", path: filepath.Join(root, "index.rst"), want: "index.rst"},
		{name: "nested file", path: filepath.Join(root, "guide", "intro.rst"), want: "guide"},
		{name: "deeply nested", path: filepath.Join(root, "a", "b", "c", "d.rst"), want: "a"},
		{name: "unclean path", path: root + string(filepath.Separator) + "x" + string(filepath.Separator) + ".." + string(filepath.Separator) + "conf.py", want: "conf.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LinkName(root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkName_OutsideRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "docs")

	for _, p := range []string{root, base, filepath.Join(base, "other", "file.rst")} {
		_, err := LinkName(root, p)
		assert.ErrorIs(t, err, ErrOutsideRoot, p)
	}
}

func TestIsRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")

	assert.True(t, IsRoot(root, root))
	assert.True(t, IsRoot(root, root+string(filepath.Separator)))
	assert.True(t, IsRoot(root, filepath.Join(root, "sub", "..")))
	assert.False(t, IsRoot(root, filepath.Join(root, "index.rst")))
	assert.False(t, IsRoot(root, filepath.Dir(root)))
}

func TestRegistry_ClaimRelease(t *testing.T) {
	r := NewRegistry()

	owner, ok := r.Claim("index.rst", "/docs1")
	assert.True(t, ok)
	assert.Equal(t, "/docs1", owner)

	// Re-claiming by the owner is fine.
	_, ok = r.Claim("index.rst", "/docs1")
	assert.True(t, ok)

	owner, ok = r.Claim("index.rst", "/docs2")
	assert.False(t, ok)
	assert.Equal(t, "/docs1", owner)

	// A non-owner cannot release.
	r.Release("index.rst", "/docs2")
	owner, ok = r.Owner("index.rst")
	require.True(t, ok)
	assert.Equal(t, "/docs1", owner)

	r.Release("index.rst", "/docs1")
	_, ok = r.Owner("index.rst")
	assert.False(t, ok)

	_, ok = r.Claim("index.rst", "/docs2")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ConcurrentClaims(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	wins := make(chan string, 2)

	for _, root := range []string{"/a", "/b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Claim("shared", root); ok {
				wins <- root
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	assert.Len(t, winners, 1)
}
