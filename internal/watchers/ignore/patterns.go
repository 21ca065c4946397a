package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher drops notifications for names matching glob patterns, such as
// editor swap files, before they reach the extension filter.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	raw        string
	glob       glob.Glob
	isNegation bool // patterns starting with !
}

// NewMatcher compiles the given patterns. Blank lines and # comments are skipped.
func NewMatcher(patterns ...string) (*Matcher, error) {
	m := &Matcher{}
	if err := m.AddPatterns(patterns); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFromFile loads patterns from a file (one per line). A missing file is
// not an error.
func (m *Matcher) LoadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return m.AddPatterns(patterns)
}

// AddPatterns adds multiple patterns to the matcher
func (m *Matcher) AddPatterns(patterns []string) error {
	for _, p := range patterns {
		if err := m.AddPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// AddPattern compiles and adds a single pattern
func (m *Matcher) AddPattern(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return nil
	}

	p := pattern{raw: raw}
	expr := raw
	if strings.HasPrefix(expr, "!") {
		p.isNegation = true
		expr = expr[1:]
	}

	g, err := glob.Compile(filepath.ToSlash(expr))
	if err != nil {
		return err
	}
	p.glob = g

	m.patterns = append(m.patterns, p)
	return nil
}

// ShouldIgnore reports whether the entry name (base name or path) is ignored.
// Later patterns override earlier ones, so "!keep.tmp" after "*.tmp" re-includes.
func (m *Matcher) ShouldIgnore(name string) bool {
	if m == nil {
		return false
	}

	base := filepath.Base(name)
	ignored := false
	for _, p := range m.patterns {
		if p.glob.Match(base) {
			ignored = !p.isNegation
		}
	}
	return ignored
}

// GetPatterns returns all configured patterns as written
func (m *Matcher) GetPatterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.raw
	}
	return out
}
