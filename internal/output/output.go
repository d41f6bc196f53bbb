// Package output handles user-facing CLI output as text or JSON.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Format represents an output format.
type Format int

const (
	// FormatText writes human-readable lines.
	FormatText Format = iota
	// FormatJSON writes JSON documents.
	FormatJSON
)

// EnvFormat selects the output format when no flag is given.
const EnvFormat = "MULTIBUILD_OUTPUT"

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Detect returns the format selected by the --json flag or the environment.
func Detect(jsonFlag bool) Format {
	if jsonFlag || os.Getenv(EnvFormat) == "json" {
		return FormatJSON
	}
	return FormatText
}

// DisableColor strips all styling from text output.
func DisableColor() {
	bannerStyle = lipgloss.NewStyle()
	okStyle = lipgloss.NewStyle()
	failStyle = lipgloss.NewStyle()
}

// Messagef writes a formatted line to w.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// Banner writes a framed heading, used to separate consecutive builds.
func Banner(w io.Writer, title string) {
	Messagef(w, "%s", bannerStyle.Render("================== "+title+" =================="))
}

// Outcome writes a one-line build result.
func Outcome(w io.Writer, exitCode int) {
	if exitCode == 0 {
		Messagef(w, "%s", okStyle.Render("Build succeeded"))
		return
	}
	Messagef(w, "%s", failStyle.Render(fmt.Sprintf("Build failed with exit code %d", exitCode)))
}
