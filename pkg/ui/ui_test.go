package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"injector/pkg/injector"
)

func TestReport(t *testing.T) {
	SetColor(false)

	report := &injector.Report{
		Groups: []injector.GroupResult{
			{Destination: "index.html", Written: true, Tags: []injector.TagSummary{{Key: "js", Files: 2}, {Key: "css", Files: 1}}},
			{Destination: "empty.html", Written: true},
			{Destination: "missing.html", Err: errors.New("template not found")},
		},
		Diagnostics: []injector.Diagnostic{
			{Kind: injector.MissingSource, Path: "gone.js"},
			{Kind: injector.MissingTemplate, Path: "missing.html"},
		},
	}

	var buf bytes.Buffer
	Report(&buf, report)

	want := "✓ index.html js (2 files), css (1 file)\n" +
		"✓ empty.html (nothing injected)\n" +
		"✗ missing.html: template not found\n" +
		"⚠ source file not found: \"gone.js\"\n"
	assert.Equal(t, want, buf.String())
}
