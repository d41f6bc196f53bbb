// Package builder runs the external documentation build tool.
package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
)

const (
	// initialExitCode is reported until the first build completes.
	initialExitCode = 1
	// startFailureExitCode is recorded when the process cannot be started.
	startFailureExitCode = 127
)

// Waiter is the rebuild signal the worker loop blocks on.
type Waiter interface {
	Wait(ctx context.Context) error
	Clear()
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where the build tool's stdout and stderr go. Defaults to
// the process's own streams.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = logging.Component(l, "builder") }
}

// WithBanner sets a callback invoked before each triggered build.
func WithBanner(fn func()) Option {
	return func(r *Runner) { r.banner = fn }
}

// Runner owns the single serialized build process.
type Runner struct {
	argv   []string
	waiter Waiter
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	banner func()

	mu       sync.Mutex
	exitCode int
	builds   int
}

// NewRunner creates a Runner executing argv (argv[0] is the executable).
func NewRunner(argv []string, waiter Waiter, opts ...Option) *Runner {
	r := &Runner{
		argv:     append([]string(nil), argv...),
		waiter:   waiter,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		log:      logging.Component(nil, "builder"),
		exitCode: initialExitCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Argv returns the command line the Runner executes.
func (r *Runner) Argv() []string {
	return append([]string(nil), r.argv...)
}

// Build runs the build tool once, waits for it to exit and records its exit
// code. It is not cancellable: a started build always runs to completion.
func (r *Runner) Build() int {
	start := time.Now()
	code := r.execute()

	r.mu.Lock()
	r.exitCode = code
	r.builds++
	r.mu.Unlock()

	r.log.Info("Build finished", "exit_code", code, "duration", time.Since(start).Round(time.Millisecond))
	return code
}

// Run is the worker loop: wait for the trigger, clear it, build, repeat.
// It returns when ctx is done, after any build in progress has finished.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := r.waiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		r.waiter.Clear()
		if r.banner != nil {
			r.banner()
		}
		r.log.Info("Triggered build")
		r.Build()
	}
}

// ExitCode returns the exit code of the most recent build.
func (r *Runner) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// Builds returns how many builds have completed.
func (r *Runner) Builds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builds
}

func (r *Runner) execute() int {
	if len(r.argv) == 0 {
		r.log.Error("No build command configured")
		return startFailureExitCode
	}

	cmd := exec.Command(r.argv[0], r.argv[1:]...) //nolint:gosec // argv comes from the user's own flags
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.log.Debug("Running build", "argv", r.argv)
	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		// Killed by a signal.
		r.log.Error("Build terminated", "error", err)
		return initialExitCode
	}
	r.log.Error("Failed to start build", "command", r.argv[0], "error", err)
	return startFailureExitCode
}
