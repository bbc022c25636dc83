// File: pkg/injector/errors.go
package injector

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the engine can report.
type Kind int

const (
	// MissingTemplate means the template (or destination used as template) does not exist.
	// Fatal for the file group only.
	MissingTemplate Kind = iota + 1
	// MissingSource means a declared source file does not exist. Non-fatal.
	MissingSource
	// MissingManifest means a dependency manifest could not be read or parsed.
	// Fatal for the file group when it is the root manifest.
	MissingManifest
	// MissingManifestEntry means a dependency or one of its main files could not be found. Non-fatal.
	MissingManifestEntry
	// PersistFailure means the destination could not be written. Fatal for the run.
	PersistFailure
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrMissingTemplate      = errors.New("template not found")
	ErrMissingSource        = errors.New("source file not found")
	ErrMissingManifest      = errors.New("dependency manifest not found")
	ErrMissingManifestEntry = errors.New("dependency manifest entry not found")
	ErrPersistFailure       = errors.New("failed to persist destination")
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case MissingTemplate:
		return "MissingTemplate"
	case MissingSource:
		return "MissingSource"
	case MissingManifest:
		return "MissingManifest"
	case MissingManifestEntry:
		return "MissingManifestEntry"
	case PersistFailure:
		return "PersistFailure"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the kind stops processing of the affected file group.
func (k Kind) Fatal() bool {
	return k == MissingTemplate || k == MissingManifest || k == PersistFailure
}

func (k Kind) sentinel() error {
	switch k {
	case MissingTemplate:
		return ErrMissingTemplate
	case MissingSource:
		return ErrMissingSource
	case MissingManifest:
		return ErrMissingManifest
	case MissingManifestEntry:
		return ErrMissingManifestEntry
	case PersistFailure:
		return ErrPersistFailure
	}
	return nil
}

// Error is a classified engine failure.
type Error struct {
	Kind Kind   // Classification of the failure.
	Path string // File the failure refers to.
	Err  error  // Underlying cause, may be nil.
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %q", e.Kind.sentinel(), e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
