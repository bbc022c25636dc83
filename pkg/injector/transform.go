// File: pkg/injector/transform.go
package injector

import (
	"path/filepath"
	"strings"
)

// FilePathPlaceholder is replaced with the normalized path in PatternTransformer patterns.
const FilePathPlaceholder = "{{filePath}}"

// Transformer renders a normalized path into the fragment injected into the template.
// Returning false drops the file silently. Implementations must be pure.
type Transformer interface {
	Transform(path string) (string, bool)
}

// TransformFunc adapts an ordinary function to the Transformer interface.
type TransformFunc func(path string) (string, bool)

// Transform calls f(path).
func (f TransformFunc) Transform(path string) (string, bool) {
	return f(path)
}

// DefaultTransformer emits HTML references for css, js and html files and drops everything else.
type DefaultTransformer struct{}

// Transform implements Transformer.
func (DefaultTransformer) Transform(path string) (string, bool) {
	switch extOf(path) {
	case "css":
		return `<link rel="stylesheet" href="` + path + `">`, true
	case "js":
		return `<script src="` + path + `"></script>`, true
	case "html":
		return `<link rel="import" href="` + path + `">`, true
	}
	return "", false
}

// PatternTransformer renders files from per-extension patterns containing {{filePath}}.
// Extensions without a pattern are passed to Fallback, or dropped when it is nil.
type PatternTransformer struct {
	Patterns map[string]string
	Fallback Transformer
}

// Transform implements Transformer.
func (p PatternTransformer) Transform(path string) (string, bool) {
	if pattern, ok := p.Patterns[extOf(path)]; ok {
		return strings.ReplaceAll(pattern, FilePathPlaceholder, path), true
	}
	if p.Fallback != nil {
		return p.Fallback.Transform(path)
	}
	return "", false
}

func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
