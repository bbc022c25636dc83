// File: pkg/injector/options.go
package injector

// Default marker templates. The {{key}} placeholder is replaced with the classification key.
const (
	DefaultStartTag = "<!-- injector:{{key}} -->"
	DefaultEndTag   = "<!-- endinjector -->"

	DefaultBowerManifest  = "bower.json"
	DefaultBowerPrefix    = "bower:"
	DefaultBowerDirectory = "bower_components"
)

// Options holds the configuration of a single injection run.
type Options struct {
	Min         bool         // Prefer an existing `.min` sibling of every source file.
	Template    string       // Template read for every group; empty means each group's Dest.
	StartTag    string       // Start marker template containing {{key}}.
	EndTag      string       // End marker template, may contain {{key}}.
	Transform   Transformer  // Renders a normalized path into a fragment; nil means DefaultTransformer.
	IgnorePaths []string     // Base paths stripped from discovered paths, in order.
	DestFile    string       // Destination shared by all groups; empty means each group's Dest.
	Bower       BowerOptions // Dependency manifest resolution settings.
}

// BowerOptions controls how a dependency manifest found among the sources is resolved.
type BowerOptions struct {
	ManifestName string // File name identifying a dependency manifest.
	Prefix       string // Prefix prepended to the classification key of resolved files.
	Directory    string // Dependency storage directory relative to the manifest; empty means .bowerrc or bower_components.
	IncludeDev   bool   // Resolve devDependencies after dependencies.
}

// FileGroup is an ordered list of source files injected into one destination.
type FileGroup struct {
	Sources []string
	Dest    string
}

// withDefaults returns a copy of the options with empty fields filled in.
func (o Options) withDefaults() Options {
	if o.StartTag == "" {
		o.StartTag = DefaultStartTag
	}
	if o.EndTag == "" {
		o.EndTag = DefaultEndTag
	}
	if o.Transform == nil {
		o.Transform = DefaultTransformer{}
	}
	if o.Bower.ManifestName == "" {
		o.Bower.ManifestName = DefaultBowerManifest
	}
	if o.Bower.Prefix == "" {
		o.Bower.Prefix = DefaultBowerPrefix
	}
	o.IgnorePaths = append([]string(nil), o.IgnorePaths...)
	return o
}
