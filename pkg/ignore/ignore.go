// Package ignore filters discovered source files with gitignore-style patterns,
// as read from an .injectorignore file.
package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// FileName is the ignore file looked up in a target's working directory.
const FileName = ".injectorignore"

// Rule is one compiled pattern line.
type Rule struct {
	Pattern *regexp.Regexp // Compiled expression matched against slash-separated paths.
	Negate  bool           // The line started with '!' and re-includes matching paths.
	Line    string         // Original pattern line.
	LineNo  int            // Line number in the source (1-based).
}

// Matcher holds the rules of one or more ignore sources, in order.
// The last matching rule decides.
type Matcher struct {
	rules  []*Rule
	logger *zap.Logger
}

// New creates an empty Matcher. A nil logger discards output.
func New(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Load reads the ignore file in dir if there is one. A missing file yields an empty Matcher.
func Load(dir string, logger *zap.Logger) (*Matcher, error) {
	m := New(logger)
	path := filepath.Join(dir, FileName)
	if err := m.AddFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}
	return m, nil
}

// AddLines compiles pattern lines and appends them to the rule set. Blank lines and
// comments are skipped; line numbers count every line given.
func (m *Matcher) AddLines(lines ...string) {
	for i, line := range lines {
		pattern, negate := parseLine(line)
		if pattern == nil {
			continue
		}
		m.rules = append(m.rules, &Rule{
			Pattern: pattern,
			Negate:  negate,
			Line:    line,
			LineNo:  i + 1,
		})
	}
}

// AddFile reads an ignore file and appends its rules.
func (m *Matcher) AddFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	m.AddLines(lines...)
	m.logger.Debug("Loaded ignore file", zap.String("file", path), zap.Int("rules", len(m.rules)))
	return nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether path is ignored.
func (m *Matcher) Match(path string) bool {
	ignored, _ := m.MatchRule(path)
	return ignored
}

// MatchRule reports whether path is ignored and returns the last rule that matched it.
func (m *Matcher) MatchRule(path string) (bool, *Rule) {
	path = filepath.ToSlash(path)

	var (
		ignored bool
		matched *Rule
	)
	for _, rule := range m.rules {
		if rule.Pattern.MatchString(path) {
			matched = rule
			ignored = !rule.Negate
		}
	}
	return ignored, matched
}

// Filter returns the paths that are not ignored, relative to base, preserving order.
func (m *Matcher) Filter(base string, paths []string) []string {
	if len(m.rules) == 0 {
		return paths
	}
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		rel := p
		if base != "" {
			if r, err := filepath.Rel(base, p); err == nil {
				rel = r
			}
		}
		if ignored, rule := m.MatchRule(rel); ignored {
			m.logger.Debug("Ignoring source", zap.String("file", p), zap.String("rule", rule.Line), zap.Int("lineNo", rule.LineNo))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// parseLine turns one gitignore-style line into a compiled expression and a negation flag.
func parseLine(line string) (*regexp.Regexp, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = strings.TrimPrefix(trimmed, "!")
	}
	if strings.HasPrefix(trimmed, `\#`) || strings.HasPrefix(trimmed, `\!`) {
		trimmed = trimmed[1:]
	}

	expr := anchor(translate(trimmed), trimmed)

	compiled, err := regexp.Compile(expr)
	if err != nil {
		return nil, false
	}
	return compiled, negate
}

// translate converts a glob into a regular expression. '**' crosses directories,
// '*' and '?' stay within one path segment and every other metacharacter is escaped.
func translate(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		rest := pattern[i:]
		switch {
		case rest == "/**":
			b.WriteString(`(/.*)?`)
			i += 2
		case strings.HasPrefix(rest, "**/"):
			b.WriteString(`(.*/)?`)
			i += 2
		case strings.HasPrefix(rest, "**"):
			b.WriteString(`.*`)
			i++
		case pattern[i] == '*':
			b.WriteString(`[^/]*`)
		case pattern[i] == '?':
			b.WriteString(`[^/]`)
		case strings.IndexByte(`\.+()|^$[]{}`, pattern[i]) >= 0:
			b.WriteByte('\\')
			b.WriteByte(pattern[i])
		default:
			b.WriteByte(pattern[i])
		}
	}
	return b.String()
}

// anchor makes the expression match the whole path. Patterns with a leading slash are
// rooted; others may match at any depth. Directory patterns also match their contents.
func anchor(expr, original string) string {
	if strings.HasSuffix(original, "/") {
		expr += "(.*)?$"
	} else {
		expr += "(/.*)?$"
	}
	if strings.HasPrefix(original, "/") {
		return "^" + strings.TrimPrefix(expr, "/")
	}
	return "^(|.*/)" + expr
}
