// File: pkg/injector/bower.go
package injector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// bowerManifest is the subset of a bower.json the resolver reads.
type bowerManifest struct {
	Name            string                   `json:"name"`
	Main            mainFiles                `json:"main"`
	Dependencies    orderedNames             `json:"dependencies"`
	DevDependencies orderedNames             `json:"devDependencies"`
	Overrides       map[string]bowerOverride `json:"overrides"`
}

type bowerOverride struct {
	Main mainFiles `json:"main"`
}

// bowerRC is the subset of a .bowerrc the resolver reads.
type bowerRC struct {
	Directory string `json:"directory"`
}

// mainFiles accepts either a single path or a list of paths.
type mainFiles []string

// UnmarshalJSON implements json.Unmarshaler.
func (m *mainFiles) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*m = mainFiles{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("main must be a string or a list of strings: %w", err)
	}
	*m = list
	return nil
}

// orderedNames holds the keys of a JSON object in declaration order.
type orderedNames []string

// UnmarshalJSON implements json.Unmarshaler.
func (o *orderedNames) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dependencies must be an object, got %v", tok)
	}
	var names orderedNames
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected dependency key %v", keyTok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
		names = append(names, name)
	}
	*o = names
	return nil
}

// ResolvedDependency describes one declared dependency after resolution.
type ResolvedDependency struct {
	Name      string   // Dependency name as declared in the root manifest.
	Directory string   // Directory the dependency is stored in.
	Main      []string // Main files as declared, relative to Directory.
	Files     []string // Absolute paths of the declared main files that exist.
}

// ResolveBower resolves the dependencies declared in the manifest at manifestPath into
// the absolute paths of their main files. Resolution is shallow: dependencies of
// dependencies are not followed. A missing or unreadable root manifest is returned as an
// error; missing dependency manifests and main files are returned as diagnostics.
func ResolveBower(manifestPath string, opts BowerOptions, logger *zap.Logger) ([]ResolvedDependency, []Diagnostic, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, nil, newError(MissingManifest, manifestPath, err)
	}

	root, err := readBowerManifest(absManifest)
	if err != nil {
		logger.Error("Failed to read dependency manifest", zap.String("manifest", absManifest), zap.Error(err))
		return nil, nil, newError(MissingManifest, manifestPath, err)
	}

	baseDir := filepath.Dir(absManifest)
	depsDir := filepath.Join(baseDir, bowerDirectory(baseDir, opts.Directory, logger))
	logger.Debug("Resolving dependency manifest",
		zap.String("manifest", absManifest),
		zap.String("directory", depsDir))

	names := append([]string(nil), root.Dependencies...)
	if opts.IncludeDev {
		names = append(names, root.DevDependencies...)
	}

	var (
		resolved    []ResolvedDependency
		diagnostics []Diagnostic
	)
	for _, name := range names {
		dep := ResolvedDependency{Name: name, Directory: filepath.Join(depsDir, name)}

		main, err := dependencyMain(dep.Directory)
		if override, ok := root.Overrides[name]; ok && override.Main != nil {
			main, err = override.Main, nil
		}
		if err != nil {
			logger.Warn("Dependency manifest not found",
				zap.String("dependency", name),
				zap.String("directory", dep.Directory),
				zap.Error(err))
			diagnostics = append(diagnostics, newDiagnostic(MissingManifestEntry, dep.Directory, err))
			continue
		}
		dep.Main = main

		for _, file := range main {
			path := filepath.Join(dep.Directory, filepath.FromSlash(file))
			if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
				logger.Warn("Dependency main file not found",
					zap.String("dependency", name),
					zap.String("file", path))
				diagnostics = append(diagnostics, newDiagnostic(MissingManifestEntry, path, statErr))
				continue
			}
			dep.Files = append(dep.Files, path)
		}
		resolved = append(resolved, dep)
	}

	return resolved, diagnostics, nil
}

// Files flattens resolved dependencies into their files, in declaration order.
func Files(deps []ResolvedDependency) []string {
	var files []string
	for _, dep := range deps {
		files = append(files, dep.Files...)
	}
	return files
}

func readBowerManifest(path string) (*bowerManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m bowerManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &m, nil
}

// dependencyMain reads the main declaration of the dependency stored in dir,
// trying bower.json before the .bower.json written by the installer.
func dependencyMain(dir string) ([]string, error) {
	var firstErr error
	for _, name := range []string{"bower.json", ".bower.json"} {
		m, err := readBowerManifest(filepath.Join(dir, name))
		if err == nil {
			return m.Main, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// bowerDirectory picks the dependency storage directory: explicit option, then .bowerrc, then the default.
func bowerDirectory(baseDir, configured string, logger *zap.Logger) string {
	if configured != "" {
		return configured
	}
	data, err := os.ReadFile(filepath.Join(baseDir, ".bowerrc"))
	if err == nil {
		var rc bowerRC
		if jsonErr := json.Unmarshal(data, &rc); jsonErr != nil {
			logger.Warn("Ignoring unreadable .bowerrc", zap.String("directory", baseDir), zap.Error(jsonErr))
		} else if rc.Directory != "" {
			return filepath.FromSlash(rc.Directory)
		}
	}
	return DefaultBowerDirectory
}
