// Package filter decides which detected changes are reported.
package filter

import (
	"sort"
	"strings"

	"github.com/filepulse/filepulse/pkg/models"
)

// ExtensionFilter accepts file names by suffix. The zero value and a filter
// built from no extensions accept everything. It is immutable after New.
type ExtensionFilter struct {
	exts map[string]struct{}
}

// New builds a filter from user-supplied extensions. Entries are normalized,
// so ".TXT", "txt" and ".txt" are equivalent; blank entries are dropped.
// A single entry may also hold a comma separated list.
func New(extensions ...string) ExtensionFilter {
	exts := make(map[string]struct{})
	for _, raw := range extensions {
		for _, part := range strings.Split(raw, ",") {
			ext := models.NormalizeExtension(part)
			if ext == "" {
				continue
			}
			exts[ext] = struct{}{}
		}
	}
	return ExtensionFilter{exts: exts}
}

// Accepts reports whether fileName should be reported
func (f ExtensionFilter) Accepts(fileName string) bool {
	if len(f.exts) == 0 {
		return true
	}
	_, ok := f.exts[models.ExtensionOf(fileName)]
	return ok
}

// IsEmpty reports whether the filter accepts all names
func (f ExtensionFilter) IsEmpty() bool {
	return len(f.exts) == 0
}

// Extensions returns the normalized extensions in sorted order
func (f ExtensionFilter) Extensions() []string {
	out := make([]string, 0, len(f.exts))
	for ext := range f.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// String renders the filter for logs and status output
func (f ExtensionFilter) String() string {
	if f.IsEmpty() {
		return "*"
	}
	return strings.Join(f.Extensions(), ",")
}
