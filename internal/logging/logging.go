// Package logging builds the process logger. Records go to a text handler;
// level labels are colored when the destination is a terminal.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ComponentKey is the attribute every component tags its records with.
const ComponentKey = "component"

var levelStyles = map[slog.Level]lipgloss.Style{
	slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

// Options controls logger construction.
type Options struct {
	// Quiet suppresses informational records; warnings and errors remain.
	Quiet bool
	// Color enables colored level labels.
	Color bool
	// Debug lowers the level to Debug. Ignored when Quiet is set.
	Debug bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Quiet:
		level = slog.LevelWarn
	case opts.Debug:
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				if !opts.Color {
					return a
				}
				lvl, ok := a.Value.Any().(slog.Level)
				if !ok {
					return a
				}
				if style, ok := levelStyles[lvl]; ok {
					return slog.String(slog.LevelKey, style.Render(lvl.String()))
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Discard returns a logger that drops everything. Used as the default for
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Component returns l tagged with the given component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(ComponentKey, name)
}

// ColorEnabled reports whether colored output should be written to f.
// noColor is the --no-color flag.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// DisableColor forces the plain-ASCII profile for all lipgloss rendering.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
