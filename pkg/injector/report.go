// File: pkg/injector/report.go
package injector

import (
	"go.uber.org/multierr"
)

// Diagnostic is a classified condition observed during a run.
type Diagnostic struct {
	Kind Kind   // Classification of the condition.
	Path string // File the condition refers to.
	Err  error  // Underlying cause, may be nil.
}

func newDiagnostic(kind Kind, path string, err error) Diagnostic {
	return Diagnostic{Kind: kind, Path: path, Err: err}
}

// Error returns the diagnostic as a classified *Error.
func (d Diagnostic) Error() *Error {
	return newError(d.Kind, d.Path, d.Err)
}

// TagSummary reports how many fragments were injected for one key.
type TagSummary struct {
	Key   string
	Files int
}

// GroupResult reports the outcome of one file group.
type GroupResult struct {
	Template    string       // Template that was read.
	Destination string       // File that was written.
	Tags        []TagSummary // Tags in creation order.
	Written     bool         // Whether the destination was persisted.
	Err         error        // Fatal error for the group, nil on success.
}

// Report collects the results and diagnostics of a run.
type Report struct {
	Groups      []GroupResult
	Diagnostics []Diagnostic
}

// Failed returns the groups that did not complete.
func (r *Report) Failed() []GroupResult {
	var failed []GroupResult
	for _, g := range r.Groups {
		if g.Err != nil {
			failed = append(failed, g)
		}
	}
	return failed
}

// Warnings returns the non-fatal diagnostics.
func (r *Report) Warnings() []Diagnostic {
	var warnings []Diagnostic
	for _, d := range r.Diagnostics {
		if !d.Kind.Fatal() {
			warnings = append(warnings, d)
		}
	}
	return warnings
}

// Err combines the errors of all failed groups, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, g := range r.Groups {
		err = multierr.Append(err, g.Err)
	}
	return err
}
