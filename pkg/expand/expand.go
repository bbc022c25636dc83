// Package expand turns the source patterns of a target into the ordered file list
// of an injection group.
package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"injector/pkg/ignore"
	"injector/pkg/injector"
)

// Target describes one destination and the sources injected into it.
type Target struct {
	Name string   `mapstructure:"name" yaml:"name,omitempty"`
	Dest string   `mapstructure:"dest" yaml:"dest"`
	Cwd  string   `mapstructure:"cwd" yaml:"cwd,omitempty"`
	Src  []string `mapstructure:"src" yaml:"src"`
}

// Sources expands patterns relative to cwd, in order. Glob patterns add the files they
// match that were not added before, sorted by path. A pattern starting with '!' removes
// the files added so far that match it. Plain paths are kept even when they do not
// exist so that the injection reports them. Finally, rules from an .injectorignore
// file in cwd are applied.
func Sources(cwd string, patterns []string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := cwd
	if root == "" {
		root = "."
	}
	fsys := os.DirFS(root)

	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}

		if exclude, ok := strings.CutPrefix(pattern, "!"); ok {
			if !doublestar.ValidatePattern(exclude) {
				return nil, fmt.Errorf("invalid exclude pattern %q", exclude)
			}
			kept := files[:0]
			for _, f := range files {
				if doublestar.MatchUnvalidated(exclude, f) {
					delete(seen, f)
					continue
				}
				kept = append(kept, f)
			}
			logger.Debug("Applied exclude pattern",
				zap.String("pattern", exclude),
				zap.Int("removed", len(files)-len(kept)))
			files = kept
			continue
		}

		if !hasMeta(pattern) {
			if !seen[pattern] {
				seen[pattern] = true
				files = append(files, pattern)
			}
			continue
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			logger.Warn("Pattern did not match any files", zap.String("pattern", pattern), zap.String("cwd", root))
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.FromSlash(f)
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		paths = append(paths, path)
	}

	matcher, err := ignore.Load(root, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore file: %w", err)
	}
	return matcher.Filter(cwd, paths), nil
}

// Groups expands every target into an injection file group.
func Groups(targets []Target, logger *zap.Logger) ([]injector.FileGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	groups := make([]injector.FileGroup, 0, len(targets))
	for i, t := range targets {
		if t.Dest == "" {
			return nil, fmt.Errorf("target %s has no dest", targetName(i, t))
		}
		sources, err := Sources(t.Cwd, t.Src, logger)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", targetName(i, t), err)
		}
		logger.Debug("Expanded target",
			zap.String("target", targetName(i, t)),
			zap.Int("sources", len(sources)))
		groups = append(groups, injector.FileGroup{Sources: sources, Dest: t.Dest})
	}
	return groups, nil
}

// Dirs returns the distinct directories containing the given files, in first-seen order.
func Dirs(files ...string) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, f := range files {
		d := filepath.Dir(f)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func targetName(i int, t Target) string {
	if t.Name != "" {
		return fmt.Sprintf("%q", t.Name)
	}
	return fmt.Sprintf("#%d (%s)", i, t.Dest)
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
