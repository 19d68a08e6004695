package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor     = color.New(color.FgGreen, color.Bold)
	infoColor   = color.New(color.FgCyan)
	warnColor   = color.New(color.FgYellow)
	stepColor   = color.New(color.FgBlue, color.Bold)
	updateColor = color.New(color.FgYellow, color.Bold)
)

// OK prints a success line.
func OK(w io.Writer, format string, args ...any) {
	line(w, okColor, "ok ", format, args...)
}

// Info prints an informational line.
func Info(w io.Writer, format string, args ...any) {
	line(w, infoColor, "-- ", format, args...)
}

// Warn prints a warning line.
func Warn(w io.Writer, format string, args ...any) {
	line(w, warnColor, "!! ", format, args...)
}

// Step prints the start of a phase.
func Step(w io.Writer, format string, args ...any) {
	line(w, stepColor, "=> ", format, args...)
}

// Marker renders an update decision for tables.
func Marker(needsUpdate bool, reason string) string {
	if needsUpdate {
		return updateColor.Sprint("update") + " (" + reason + ")"
	}

	return okColor.Sprint("ok")
}

// Check renders a yes/no cell.
func Check(ok bool) string {
	if ok {
		return okColor.Sprint("yes")
	}

	return warnColor.Sprint("no")
}

func line(w io.Writer, tag *color.Color, prefix, format string, args ...any) {
	tag.Fprint(w, prefix) //nolint:errcheck,gosec // Best effort terminal output.

	fmt.Fprintf(w, format+"\n", args...) //nolint:errcheck // Best effort terminal output.
}
