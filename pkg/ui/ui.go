// Package ui prints the human-readable summary of an injection run.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"injector/pkg/injector"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	grey   = color.New(color.FgHiBlack)
)

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// Success prints a green line with a check mark.
func Success(w io.Writer, format string, args ...any) {
	green.Fprintf(w, "✓ "+format+"\n", args...)
}

// Warning prints a yellow warning line.
func Warning(w io.Writer, format string, args ...any) {
	yellow.Fprintf(w, "⚠ "+format+"\n", args...)
}

// Error prints a red error line.
func Error(w io.Writer, format string, args ...any) {
	red.Fprintf(w, "✗ "+format+"\n", args...)
}

// Report prints one line per written destination with its injected tags, followed by
// warnings and failed groups.
func Report(w io.Writer, report *injector.Report) {
	for _, g := range report.Groups {
		switch {
		case g.Err != nil:
			Error(w, "%s: %v", g.Destination, g.Err)
		case len(g.Tags) == 0:
			Success(w, "%s %s", g.Destination, grey.Sprint("(nothing injected)"))
		default:
			Success(w, "%s %s", g.Destination, formatTags(g.Tags))
		}
	}
	for _, d := range report.Warnings() {
		Warning(w, "%s", d.Error())
	}
}

func formatTags(tags []injector.TagSummary) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		noun := "files"
		if t.Files == 1 {
			noun = "file"
		}
		parts = append(parts, fmt.Sprintf("%s %s", green.Sprint(t.Key), grey.Sprintf("(%d %s)", t.Files, noun)))
	}
	return strings.Join(parts, ", ")
}
