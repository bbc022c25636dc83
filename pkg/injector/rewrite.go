// File: pkg/injector/rewrite.go
package injector

import (
	"regexp"
	"strings"
)

// Rewrite replaces the region between every tag's marker pair with its fragments.
func Rewrite(text string, registry *Registry) string {
	return RewriteTags(text, registry.Tags())
}

// RewriteTags is Rewrite over an explicit tag list. Tags whose markers are absent
// from text leave it unchanged.
func RewriteTags(text string, tags []*Tag) string {
	for _, tag := range tags {
		text, _ = rewriteTag(text, tag)
	}
	return text
}

// markerPattern matches optional indentation, the start marker, anything up to the
// first end marker, and the end marker.
func markerPattern(tag *Tag) *regexp.Regexp {
	return regexp.MustCompile(`(?is)([\t ]*)(` + regexp.QuoteMeta(tag.StartTag) + `)(.*?)(` + regexp.QuoteMeta(tag.EndTag) + `)`)
}

// rewriteTag rewrites every region of tag and returns the number of regions found.
func rewriteTag(text string, tag *Tag) (string, int) {
	re := markerPattern(tag)
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		indent := text[m[2]:m[3]]
		start := text[m[4]:m[5]]
		end := text[m[8]:m[9]]

		b.WriteString(text[last:m[0]])
		b.WriteString(indent)
		b.WriteString(start)
		for _, fragment := range tag.Fragments {
			b.WriteString("\n")
			b.WriteString(indent)
			b.WriteString(fragment)
		}
		b.WriteString("\n")
		b.WriteString(indent)
		b.WriteString(end)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), len(matches)
}
