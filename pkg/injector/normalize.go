// File: pkg/injector/normalize.go
package injector

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize converts a discovered file path into the form used for rendering:
// forward slashes, base paths stripped in order and exactly one leading slash.
func Normalize(basePaths []string, filePath string) string {
	return addRootSlash(removeBasePaths(basePaths, toSlash(filePath)))
}

// ClassificationKey returns the lower-cased extension of path without its dot,
// preceded by prefix.
func ClassificationKey(prefix, path string) string {
	ext := strings.TrimPrefix(filepath.Ext(toSlash(path)), ".")
	return prefix + strings.ToLower(ext)
}

// toSlash replaces backslash separators regardless of the host OS.
func toSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// minifiedPath returns the `.min` sibling of path when it exists, otherwise path.
func minifiedPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path
	}
	minPath := strings.TrimSuffix(path, ext) + ".min" + ext
	if info, err := os.Stat(minPath); err == nil && !info.IsDir() {
		return minPath
	}
	return path
}

// removeBasePaths strips the first occurrence of every base path, in order.
func removeBasePaths(basePaths []string, path string) string {
	for _, base := range basePaths {
		if base == "" {
			continue
		}
		path = strings.Replace(path, toSlash(base), "", 1)
	}
	return path
}

// addRootSlash ensures the path starts with exactly one slash.
func addRootSlash(path string) string {
	trimmed := strings.TrimLeft(path, "/")
	if trimmed == "" {
		return path
	}
	return "/" + trimmed
}
