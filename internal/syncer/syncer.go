// Package syncer keeps the symlinks in a staging directory consistent with
// the top-level entries of one source tree.
//
// A Synchronizer performs a full sync when it is constructed and afterwards
// applies filesystem events one at a time. Every handler reconciles the
// affected top-level name against the source tree, so handlers are
// idempotent and tolerate entries that vanished before the event arrived.
package syncer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/twiced-technology-gmbh/multibuild/internal/linkmap"
	"github.com/twiced-technology-gmbh/multibuild/internal/logging"
	"github.com/twiced-technology-gmbh/multibuild/internal/symlink"
)

// ErrNameConflict is reported when a name is already linked from another source root.
var ErrNameConflict = errors.New("name already linked from another input directory")

// Signaler is notified after every handled event.
type Signaler interface {
	Arm()
}

// ErrorFunc receives link failures. root is the synchronizer's source root.
type ErrorFunc func(root string, err error)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithErrorFunc sets the callback for failed link operations. By default
// failures are only logged.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(s *Synchronizer) {
		if fn != nil {
			s.onError = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.log = logging.Component(l, "syncer") }
}

// WithRegistry shares a name registry between synchronizers writing to the
// same staging directory.
func WithRegistry(r *linkmap.Registry) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.registry = r
		}
	}
}

// Synchronizer owns one (source root, staging directory) pairing.
type Synchronizer struct {
	root     string
	staging  string
	linker   symlink.Linker
	trigger  Signaler
	onError  ErrorFunc
	log      *slog.Logger
	registry *linkmap.Registry
}

// New creates a Synchronizer and links every immediate child of root into
// staging. root and staging must already be absolute and normalized. Any
// failure during this initial sync is reported through the error callback
// and returned.
func New(root, staging string, linker symlink.Linker, trigger Signaler, opts ...Option) (*Synchronizer, error) {
	s := &Synchronizer{
		root:     root,
		staging:  staging,
		linker:   linker,
		trigger:  trigger,
		onError:  func(string, error) {},
		log:      logging.Component(nil, "syncer"),
		registry: linkmap.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("root", root)

	if err := s.initialSync(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the source root.
func (s *Synchronizer) Root() string { return s.root }

func (s *Synchronizer) initialSync() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		err = fmt.Errorf("listing %s: %w", s.root, err)
		s.fail("Failed to list input directory", err)
		return err
	}
	for _, e := range entries {
		name := e.Name()
		s.log.Info("Creating initial symlink", "path", linkmap.SourcePath(s.root, name))
		if err := s.link(name); err != nil {
			s.fail("Failed to create symlink", err)
			return err
		}
	}
	return nil
}

// Created handles a new path inside the source tree.
func (s *Synchronizer) Created(path string) {
	if linkmap.IsRoot(s.root, path) {
		return
	}
	s.handle("Create detected, creating symlink", "Failed to create symlink", func() error {
		return s.reconcilePath(path)
	}, "path", path)
}

// Modified handles a changed path. The link is recreated so staging
// reflects that the source is live.
func (s *Synchronizer) Modified(path string) {
	if linkmap.IsRoot(s.root, path) {
		return
	}
	s.handle("Change detected, recreating symlink", "Failed to recreate symlink", func() error {
		return s.reconcilePath(path)
	}, "path", path)
}

// Deleted handles a removed path. The link goes away once the top-level
// source entry is gone; a deletion deeper in the tree keeps it.
func (s *Synchronizer) Deleted(path string) {
	if linkmap.IsRoot(s.root, path) {
		return
	}
	s.handle("Delete detected, deleting symlink", "Failed to delete symlink", func() error {
		return s.reconcilePath(path)
	}, "path", path)
}

// Moved handles a rename inside the source tree: the origin's link is
// settled first, then the destination's.
func (s *Synchronizer) Moved(from, to string) {
	if linkmap.IsRoot(s.root, from) || linkmap.IsRoot(s.root, to) {
		return
	}
	s.handle("Move detected, removing old symlink and creating new", "Failed to remove/create symlink", func() error {
		fromName, errFrom := linkmap.LinkName(s.root, from)
		if errFrom == nil {
			errFrom = s.reconcile(fromName)
		}
		toName, err := linkmap.LinkName(s.root, to)
		if err != nil {
			return errors.Join(errFrom, err)
		}
		if toName == fromName {
			return errFrom
		}
		return errors.Join(errFrom, s.reconcile(toName))
	}, "from", from, "to", to)
}

// handle runs one event: it logs, reports failures and arms the trigger
// exactly once, even if op panics.
func (s *Synchronizer) handle(msg, failMsg string, op func() error, args ...any) {
	defer s.trigger.Arm()
	defer func() {
		if r := recover(); r != nil {
			s.fail("Event handler panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	s.log.Info(msg, args...)
	if err := op(); err != nil {
		s.fail(failMsg, err)
	}
}

func (s *Synchronizer) fail(msg string, err error) {
	s.log.Error(msg, "error", err)
	s.onError(s.root, err)
}

func (s *Synchronizer) reconcilePath(path string) error {
	name, err := linkmap.LinkName(s.root, path)
	if err != nil {
		return err
	}
	return s.reconcile(name)
}

// reconcile makes staging/name match root/name: a fresh link when the source
// entry exists, no link when it does not.
func (s *Synchronizer) reconcile(name string) error {
	if _, err := os.Lstat(linkmap.SourcePath(s.root, name)); err != nil {
		if os.IsNotExist(err) {
			return s.unlink(name)
		}
		return fmt.Errorf("inspecting %s: %w", linkmap.SourcePath(s.root, name), err)
	}
	return s.link(name)
}

// link replaces staging/name with a link to root/name.
func (s *Synchronizer) link(name string) error {
	if owner, ok := s.registry.Claim(name, s.root); !ok {
		return fmt.Errorf("%w: %q belongs to %s", ErrNameConflict, name, owner)
	}
	target := linkmap.SourcePath(s.root, name)
	link := linkmap.StagingPath(s.staging, name)
	if err := symlink.Replace(s.linker, target, link); err != nil {
		if !s.linker.IsLink(link) {
			s.registry.Release(name, s.root)
		}
		return err
	}
	s.log.Debug("Linked", "link", link, "target", target)
	return nil
}

// unlink removes staging/name if this root owns it. A missing link is fine.
func (s *Synchronizer) unlink(name string) error {
	owner, ok := s.registry.Owner(name)
	if ok && owner != s.root {
		return nil
	}
	link := linkmap.StagingPath(s.staging, name)
	if s.linker.IsLink(link) {
		if err := s.linker.Remove(link); err != nil {
			return err
		}
		s.log.Debug("Unlinked", "link", link)
	}
	s.registry.Release(name, s.root)
	return nil
}
