// Package buildtest provides a fake documentation build tool for tests. The
// fake is a shell script that records each invocation's arguments and exits
// with a chosen status.
package buildtest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const endMarker = "--end-of-invocation--"

// Fake is a recording stand-in for the build executable.
type Fake struct {
	// Path is the executable to invoke.
	Path string
	log  string
}

// Options configures the fake.
type Options struct {
	ExitCode int
	// Sleep delays the exit, to simulate a long build.
	Sleep time.Duration
}

// New writes a fake build tool into a temporary directory. Tests using it
// are skipped on Windows.
func New(t testing.TB, opts Options) *Fake {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake build tool is a POSIX shell script")
	}

	dir := t.TempDir()
	f := &Fake{
		Path: filepath.Join(dir, "fake-build"),
		log:  filepath.Join(dir, "invocations.log"),
	}

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&script, "for a in \"$@\"; do printf '%%s\\n' \"$a\" >> '%s'; done\n", f.log)
	if opts.Sleep > 0 {
		fmt.Fprintf(&script, "sleep %.3f\n", opts.Sleep.Seconds())
	}
	fmt.Fprintf(&script, "printf '%%s\\n' '%s' >> '%s'\n", endMarker, f.log)
	fmt.Fprintf(&script, "exit %d\n", opts.ExitCode)

	if err := os.WriteFile(f.Path, []byte(script.String()), 0o700); err != nil { //nolint:gosec // test executable
		t.Fatalf("writing fake build tool: %v", err)
	}
	return f
}

// Invocations returns the arguments of every completed invocation.
func (f *Fake) Invocations(t testing.TB) [][]string {
	t.Helper()
	data, err := os.ReadFile(f.log)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading invocation log: %v", err)
	}

	var (
		out     [][]string
		current []string
	)
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if line == endMarker {
			out = append(out, current)
			current = nil
			continue
		}
		current = append(current, line)
	}
	return out
}

// Count returns the number of completed invocations.
func (f *Fake) Count(t testing.TB) int {
	t.Helper()
	return len(f.Invocations(t))
}
