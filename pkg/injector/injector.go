// Package injector injects references to source files into marked regions of a template.
//
// Files are grouped by classification key (their extension, optionally prefixed), rendered
// into fragments by a Transformer and written between the key's start and end markers:
//
//	<!-- injector:js -->
//	<script src="/app.js"></script>
//	<!-- endinjector -->
//
// Every run recomputes the regions from scratch, so injecting into an already injected
// template is idempotent.
package injector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Injector runs injections for a fixed set of options. It holds no per-run state and
// can be reused and shared.
type Injector struct {
	opts   Options
	logger *zap.Logger
}

// New creates an Injector. Empty options fall back to their defaults; a nil logger
// discards all output.
func New(opts Options, logger *zap.Logger) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Injector{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (in *Injector) Options() Options {
	return in.opts
}

// Run processes the file groups in order. Groups whose template is missing or whose
// dependency manifest cannot be read are recorded as failed and skipped. A failure to
// write a destination aborts the run and is returned together with the partial report.
func (in *Injector) Run(ctx context.Context, groups []FileGroup) (*Report, error) {
	startTime := time.Now()
	report := &Report{}
	if in.opts.Template == "" {
		in.logger.Debug("No template configured, using each destination as template")
	}

	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("injection cancelled: %w", err)
		}
		result, err := in.runGroup(group, report)
		report.Groups = append(report.Groups, result)
		if err != nil {
			return report, err
		}
	}

	in.logger.Info("Injection completed",
		zap.Int("groups", len(report.Groups)),
		zap.Int("failedGroups", len(report.Failed())),
		zap.Int("warnings", len(report.Warnings())),
		zap.Duration("elapsed", time.Since(startTime)))
	return report, nil
}

// runGroup takes one file group from loading its template to persisting the result.
// The returned error is non-nil only for failures that abort the run.
func (in *Injector) runGroup(group FileGroup, report *Report) (GroupResult, error) {
	result := GroupResult{
		Template:    firstNonEmpty(in.opts.Template, group.Dest),
		Destination: firstNonEmpty(in.opts.DestFile, group.Dest),
	}
	logger := in.logger.With(zap.String("destination", result.Destination))

	// LoadTemplate
	content, err := os.ReadFile(result.Template)
	if err != nil {
		logger.Error("Could not find template, injection not possible",
			zap.String("template", result.Template), zap.Error(err))
		diag := newDiagnostic(MissingTemplate, result.Template, err)
		report.Diagnostics = append(report.Diagnostics, diag)
		result.Err = diag.Error()
		return result, nil
	}

	// ClassifySources, Render
	registry, diagnostics, err := in.classify(group.Sources)
	report.Diagnostics = append(report.Diagnostics, diagnostics...)
	if err != nil {
		logger.Error("Failed to resolve sources", zap.Error(err))
		result.Err = err
		return result, nil
	}

	// RewriteTemplate
	text := string(content)
	for _, tag := range registry.Tags() {
		var regions int
		text, regions = rewriteTag(text, tag)
		if regions == 0 {
			logger.Debug("Markers not found in template", zap.String("key", tag.Key), zap.String("startTag", tag.StartTag))
			continue
		}
		logger.Info("Injecting files", zap.String("key", tag.Key), zap.Int("files", len(tag.Fragments)))
		result.Tags = append(result.Tags, TagSummary{Key: tag.Key, Files: len(tag.Fragments)})
	}

	// Persist
	if err := writeToFile(result.Destination, text, logger); err != nil {
		diag := newDiagnostic(PersistFailure, result.Destination, err)
		report.Diagnostics = append(report.Diagnostics, diag)
		result.Err = diag.Error()
		return result, fmt.Errorf("failed to write destination: %w", result.Err)
	}
	result.Written = true
	return result, nil
}

// InjectString injects sources into text without touching the template or destination
// files. Source files and dependency manifests are still read from disk.
func (in *Injector) InjectString(text string, sources []string) (string, []Diagnostic, error) {
	registry, diagnostics, err := in.classify(sources)
	if err != nil {
		return text, diagnostics, err
	}
	return Rewrite(text, registry), diagnostics, nil
}

// classify renders every source into a fresh registry. Dependency manifests are expanded
// in place. The returned error is fatal for the group.
func (in *Injector) classify(sources []string) (*Registry, []Diagnostic, error) {
	registry := NewRegistry(in.opts.StartTag, in.opts.EndTag)
	var diagnostics []Diagnostic

	for _, source := range sources {
		if filepath.Base(source) != in.opts.Bower.ManifestName {
			info, err := os.Stat(source)
			if err != nil || info.IsDir() {
				in.logger.Warn("Source file not found", zap.String("source", source))
				diagnostics = append(diagnostics, newDiagnostic(MissingSource, source, err))
				continue
			}
			in.addFile(registry, in.opts.IgnorePaths, source, "")
			continue
		}

		deps, depDiagnostics, err := ResolveBower(source, in.opts.Bower, in.logger)
		diagnostics = append(diagnostics, depDiagnostics...)
		if err != nil {
			var classified *Error
			if errors.As(err, &classified) {
				diagnostics = append(diagnostics, newDiagnostic(classified.Kind, classified.Path, classified.Err))
			}
			return registry, diagnostics, err
		}

		// Resolved files are absolute. They are rebased onto the manifest path as given
		// so they arrive like any other source, relative to the working directory.
		manifestDir := filepath.Dir(source)
		absManifestDir, err := filepath.Abs(manifestDir)
		if err != nil {
			return registry, diagnostics, newError(MissingManifest, source, err)
		}
		basePaths := in.opts.IgnorePaths
		if len(basePaths) == 0 && manifestDir != "." {
			basePaths = []string{manifestDir}
		}
		files := Files(deps)
		for _, file := range files {
			if rel, err := filepath.Rel(absManifestDir, file); err == nil {
				file = filepath.Join(manifestDir, rel)
			}
			in.addFile(registry, basePaths, file, in.opts.Bower.Prefix)
		}
		in.logger.Info("Injecting dependencies",
			zap.String("manifest", source),
			zap.Int("dependencies", len(deps)),
			zap.Int("files", len(files)))
	}

	return registry, diagnostics, nil
}

// addFile normalizes and renders one file and appends it under its classification key.
// Files the transformer drops leave the registry untouched.
func (in *Injector) addFile(registry *Registry, basePaths []string, path, keyPrefix string) {
	key := ClassificationKey(keyPrefix, path)
	normalized := in.normalize(basePaths, path)

	fragment, ok := in.opts.Transform.Transform(normalized)
	if !ok {
		in.logger.Debug("Transformer dropped file", zap.String("file", normalized), zap.String("key", key))
		return
	}
	registry.Append(key, fragment)
}

// normalize applies the minified sibling substitution before Normalize.
func (in *Injector) normalize(basePaths []string, path string) string {
	path = toSlash(path)
	if in.opts.Min {
		path = minifiedPath(path)
	}
	return Normalize(basePaths, path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
