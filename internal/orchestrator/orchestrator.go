// Package orchestrator wires the per-input synchronizers, the debounced
// trigger and the build runner together, and owns startup validation and
// the watch lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/twiced-technology-gmbh/multibuild/internal/builder"
	"github.com/twiced-technology-gmbh/multibuild/internal/clierr"
	"github.com/twiced-technology-gmbh/multibuild/internal/filelock"
	"github.com/twiced-technology-gmbh/multibuild/internal/linkmap"
	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
	"github.com/twiced-technology-gmbh/multibuild/internal/output"
	"github.com/twiced-technology-gmbh/multibuild/internal/symlink"
	"github.com/twiced-technology-gmbh/multibuild/internal/syncer"
	"github.com/twiced-technology-gmbh/multibuild/internal/trigger"
	"github.com/twiced-technology-gmbh/multibuild/internal/watcher"
)

const bannerTitle = "Triggered Sphinx build"

// Options configures an Orchestrator.
type Options struct {
	Inputs     []string
	StagingDir string
	OutputDir  string
	Monitor    bool

	// QuietPeriod is the debounce interval; zero selects the default.
	QuietPeriod time.Duration

	// Command is the build executable prefix used when SPHINXBUILD is unset.
	Command     []string
	Passthrough []string
	Filenames   []string

	Logger *slog.Logger
	// OnLinkError receives link failures after they are logged.
	OnLinkError syncer.ErrorFunc
	// Linker defaults to the platform symlink adapter.
	Linker symlink.Linker

	// Stdout and Stderr receive the build tool's output; nil means the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
	// Banner, when set, receives a heading before every triggered build.
	Banner io.Writer
}

// Orchestrator is a validated, fully synced multibuild session.
type Orchestrator struct {
	opts     Options
	log      *slog.Logger
	inputs   []string
	staging  string
	output   string
	trigger  *trigger.Trigger
	runner   *builder.Runner
	syncers  []*syncer.Synchronizer
	registry *linkmap.Registry
	unlock   func() error
}

// New validates the environment, prepares the staging directory and performs
// the initial sync of every input. Failures are *clierr.Error values with a
// setup code; nothing is left locked when New fails.
func New(opts Options) (_ *Orchestrator, err error) {
	o := &Orchestrator{
		opts:     opts,
		log:      logging.Component(opts.Logger, "orchestrator"),
		registry: linkmap.NewRegistry(),
	}
	if o.opts.Linker == nil {
		o.opts.Linker = symlink.New()
	}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()

	if o.staging, err = linkmap.Normalize(opts.StagingDir); err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "resolving symlink directory")
	}
	if o.output, err = linkmap.Normalize(opts.OutputDir); err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "resolving output directory")
	}
	for _, dir := range []string{o.output, o.staging} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, clierr.Wrap(clierr.SetupFailed, err, "creating directory").
				WithDetails(map[string]any{"path": dir})
		}
	}

	lockPath := filelock.PathFor(o.staging)
	if o.unlock, err = filelock.TryLock(lockPath); err != nil {
		code := clierr.SetupFailed
		if errors.Is(err, filelock.ErrLocked) {
			code = clierr.StagingLocked
		}
		return nil, clierr.Wrap(code, err, "locking symlink directory "+o.staging).
			WithDetails(map[string]any{"lock": lockPath})
	}

	if err := o.clearStaging(); err != nil {
		return nil, err
	}
	if o.inputs, err = resolveInputs(opts.Inputs); err != nil {
		return nil, err
	}
	if err := checkStagingOutside(o.staging, o.inputs); err != nil {
		return nil, err
	}
	if err := checkCollisions(o.inputs); err != nil {
		return nil, err
	}

	o.trigger = trigger.New(opts.QuietPeriod)
	for _, root := range o.inputs {
		s, err := syncer.New(root, o.staging, o.opts.Linker, o.trigger,
			syncer.WithLogger(opts.Logger),
			syncer.WithRegistry(o.registry),
			syncer.WithErrorFunc(opts.OnLinkError),
		)
		if err != nil {
			return nil, clierr.Wrap(clierr.SetupFailed, err, "initial sync of "+root).
				WithDetails(map[string]any{"input": root})
		}
		o.syncers = append(o.syncers, s)
	}

	runnerOpts := []builder.Option{builder.WithLogger(opts.Logger)}
	if opts.Stdout != nil || opts.Stderr != nil {
		runnerOpts = append(runnerOpts, builder.WithOutput(orStd(opts.Stdout, os.Stdout), orStd(opts.Stderr, os.Stderr)))
	}
	if opts.Banner != nil {
		runnerOpts = append(runnerOpts, builder.WithBanner(func() { output.Banner(opts.Banner, bannerTitle) }))
	}
	argv := builder.Command(opts.Command, o.staging, o.output, opts.Passthrough, opts.Filenames)
	o.runner = builder.NewRunner(argv, o.trigger, runnerOpts...)

	return o, nil
}

// Run performs the initial build and, when monitoring, rebuilds on change
// until ctx is canceled. It returns the most recent build's exit code. A
// build in progress at cancellation is waited for.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	o.runner.Build()
	if !o.opts.Monitor || ctx.Err() != nil {
		return o.runner.ExitCode(), nil
	}

	watchers := make([]*watcher.Watcher, 0, len(o.syncers))
	defer func() {
		for _, w := range watchers {
			_ = w.Close()
		}
	}()
	for _, s := range o.syncers {
		w, err := watcher.New(s.Root(), s, o.opts.Logger)
		if err != nil {
			return o.runner.ExitCode(), clierr.Wrap(clierr.SetupFailed, err, "watching "+s.Root()).
				WithDetails(map[string]any{"input": s.Root()})
		}
		watchers = append(watchers, w)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range watchers {
		g.Go(func() error {
			w.Run(gctx, func(err error) {
				o.log.Warn("Watch error", "root", w.Root(), "error", err)
			})
			return nil
		})
	}
	g.Go(func() error { return o.runner.Run(gctx) })

	o.log.Info("Monitoring for changes", "inputs", len(watchers), "quiet_period", o.trigger.QuietPeriod())
	err := g.Wait()
	o.log.Info("Stopped monitoring")
	if err != nil {
		return o.runner.ExitCode(), clierr.Wrap(clierr.InternalError, err, "monitoring")
	}
	return o.runner.ExitCode(), nil
}

// Close stops the trigger and releases the staging lock. It is safe to call
// more than once.
func (o *Orchestrator) Close() {
	if o.trigger != nil {
		o.trigger.Stop()
	}
	if o.unlock != nil {
		if err := o.unlock(); err != nil {
			o.log.Warn("Failed to release staging lock", "error", err)
		}
		o.unlock = nil
	}
}

// Inputs returns the normalized source roots.
func (o *Orchestrator) Inputs() []string { return append([]string(nil), o.inputs...) }

// StagingDir returns the normalized staging directory.
func (o *Orchestrator) StagingDir() string { return o.staging }

// OutputDir returns the normalized output directory.
func (o *Orchestrator) OutputDir() string { return o.output }

// Argv returns the build command line.
func (o *Orchestrator) Argv() []string { return o.runner.Argv() }

// Summary reports the state of the session.
func (o *Orchestrator) Summary() output.RunSummary {
	return output.RunSummary{
		ExitCode:   o.runner.ExitCode(),
		Builds:     o.runner.Builds(),
		Links:      o.registry.Len(),
		Inputs:     o.Inputs(),
		SymlinkDir: o.staging,
		OutputDir:  o.output,
		Monitored:  o.opts.Monitor,
	}
}

// clearStaging refuses a staging directory holding anything but links, then
// removes every link in it.
func (o *Orchestrator) clearStaging() error {
	entries, err := os.ReadDir(o.staging)
	if err != nil {
		return clierr.Wrap(clierr.SetupFailed, err, "listing symlink directory")
	}

	links := make([]string, 0, len(entries))
	for _, e := range entries {
		p := filepath.Join(o.staging, e.Name())
		if !o.opts.Linker.IsLink(p) {
			o.log.Error("File in symlink directory is not a symlink", "path", p)
			return clierr.Newf(clierr.StagingNotClean, "file in symlink directory is not a symlink: %s", p).
				WithDetails(map[string]any{"path": p})
		}
		links = append(links, p)
	}
	for _, p := range links {
		if err := o.opts.Linker.Remove(p); err != nil {
			return clierr.Wrap(clierr.SetupFailed, err, "removing stale symlink").
				WithDetails(map[string]any{"path": p})
		}
		o.log.Debug("Removed stale symlink", "path", p)
	}
	return nil
}

// resolveInputs checks every input is a directory and returns them absolute
// with symlinks resolved.
func resolveInputs(inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, clierr.New(clierr.InvalidInput, "at least one input directory is required")
	}
	out := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		invalid := func(msg string) error {
			return clierr.Newf(clierr.InvalidInput, "%s %s", in, msg).WithDetails(map[string]any{"path": in})
		}
		abs, err := linkmap.Normalize(in)
		if err != nil {
			return nil, invalid("cannot be resolved")
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, invalid("is not a directory")
		}
		fi, err := os.Stat(resolved)
		if err != nil || !fi.IsDir() {
			return nil, invalid("is not a directory")
		}
		if seen[resolved] {
			return nil, invalid("is given more than once")
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out, nil
}

// checkCollisions rejects inputs sharing a top-level entry name.
func checkCollisions(roots []string) error {
	owners := make(map[string]string)
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			return clierr.Wrap(clierr.InvalidInput, err, "listing input directory").
				WithDetails(map[string]any{"path": root})
		}
		for _, e := range entries {
			if first, ok := owners[e.Name()]; ok {
				pair := []string{first, root}
				sort.Strings(pair)
				return clierr.Newf(clierr.NameCollision, "%q exists in both %s and %s", e.Name(), first, root).
					WithDetails(map[string]any{"name": e.Name(), "inputs": pair})
			}
			owners[e.Name()] = root
		}
	}
	return nil
}

// checkStagingOutside rejects a staging directory at or below an input, which
// would make the synchronizers watch their own links.
func checkStagingOutside(staging string, roots []string) error {
	resolved, err := filepath.EvalSymlinks(staging)
	if err != nil {
		resolved = staging
	}
	for _, root := range roots {
		rel, err := filepath.Rel(root, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return clierr.Newf(clierr.InvalidInput, "symlink directory %s is inside input %s", staging, root).
			WithDetails(map[string]any{"path": staging, "input": root})
	}
	return nil
}

func orStd(w, std io.Writer) io.Writer {
	if w == nil {
		return std
	}
	return w
}
