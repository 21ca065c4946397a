package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionFilterAccepts(t *testing.T) {
	tests := []struct {
		name   string
		exts   []string
		file   string
		accept bool
	}{
		{name: "empty accepts all", exts: nil, file: "anything.bin", accept: true},
		{name: "empty accepts no extension", exts: nil, file: "Makefile", accept: true},
		{name: "match", exts: []string{"txt"}, file: "a.txt", accept: true},
		{name: "case insensitive", exts: []string{".TXT"}, file: "A.Txt", accept: true},
		{name: "excluded", exts: []string{"txt"}, file: "a.java", accept: false},
		{name: "last suffix wins", exts: []string{"txt"}, file: "notes.txt.bak", accept: false},
		{name: "last suffix match", exts: []string{"bak"}, file: "notes.txt.bak", accept: true},
		{name: "no extension excluded", exts: []string{"txt"}, file: "README", accept: false},
		{name: "comma list", exts: []string{"go, .md"}, file: "doc.md", accept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.exts...)
			assert.Equal(t, tt.accept, f.Accepts(tt.file))
		})
	}
}

func TestExtensionFilterNormalizesEntries(t *testing.T) {
	f := New(".TXT", "txt", " .txt ", "", ".")

	assert.Equal(t, []string{"txt"}, f.Extensions())
	assert.False(t, f.IsEmpty())
	assert.Equal(t, "txt", f.String())
}

func TestZeroValueAcceptsAll(t *testing.T) {
	var f ExtensionFilter

	assert.True(t, f.IsEmpty())
	assert.True(t, f.Accepts("x.y"))
	assert.Equal(t, "*", f.String())
}
