// Package output provides the human-facing lines kwatch prints to stdout.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette
const (
	ColorLime     = "154" // Primary accent
	ColorGray     = "245" // Paths and secondary text
	ColorDarkGray = "238" // Labels
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds the lipgloss styles used for each kind of line.
type Styles struct {
	Label   lipgloss.Style
	Path    lipgloss.Style
	Changed lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the colored styles used on a terminal.
func DefaultStyles() Styles {
	return Styles{
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Changed: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for pipes and NO_COLOR.
func NoColorStyles() Styles {
	return Styles{
		Label:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
		Changed: lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
	}
}

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer. Color is used only when out is a terminal and
// NO_COLOR is not set.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !DetectNoColor())
}

// NewWithColor creates a Writer with color explicitly on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	styles := NoColorStyles()
	if useColor {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Watching prints the confirmation line for a registered target.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Watching(path string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Label.Render("watch:"), w.styles.Path.Render(path))
}

// Changed prints the line announcing a reaction to path.
func (w *Writer) Changed(path string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Changed.Render("file changed:"), path)
}

// Target prints one resolved target, used by dry runs.
func (w *Writer) Target(path string) {
	_, _ = fmt.Fprintln(w.out, path)
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render("warning: "+msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render(msg))
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
// See https://no-color.org/
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
