// File: pkg/injector/tags.go
package injector

import "strings"

// Tag is a marker pair plus the fragments collected for one classification key.
type Tag struct {
	Key       string   // Classification key, e.g. "js" or "bower:css".
	StartTag  string   // Resolved start marker literal.
	EndTag    string   // Resolved end marker literal.
	Fragments []string // Rendered fragments in discovery order.
}

// Registry maps classification keys to tags in order of first use.
// A Registry belongs to a single file group run and is never shared.
type Registry struct {
	startTag string
	endTag   string
	byKey    map[string]*Tag
	order    []*Tag
}

// NewRegistry creates an empty registry using the given marker templates.
func NewRegistry(startTag, endTag string) *Registry {
	return &Registry{
		startTag: startTag,
		endTag:   endTag,
		byKey:    make(map[string]*Tag),
	}
}

// GetOrCreate returns the tag for key, resolving its marker pair on first use.
func (r *Registry) GetOrCreate(key string) *Tag {
	if tag, ok := r.byKey[key]; ok {
		return tag
	}
	tag := &Tag{
		Key:      key,
		StartTag: expandMarker(r.startTag, key),
		EndTag:   expandMarker(r.endTag, key),
	}
	r.byKey[key] = tag
	r.order = append(r.order, tag)
	return tag
}

// Append adds a rendered fragment to the tag for key.
func (r *Registry) Append(key, fragment string) {
	tag := r.GetOrCreate(key)
	tag.Fragments = append(tag.Fragments, fragment)
}

// Tags returns the tags in creation order.
func (r *Registry) Tags() []*Tag {
	return r.order
}

// Len returns the number of tags.
func (r *Registry) Len() int {
	return len(r.order)
}

// expandMarker substitutes key for every {{key}} in a marker template. {{ext}} is accepted
// for compatibility.
func expandMarker(marker, key string) string {
	return strings.NewReplacer("{{key}}", key, "{{ext}}", key).Replace(marker)
}
