package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"2d", 48 * time.Hour, false},
		{"45", 45 * time.Second, false},
		{" 5m ", 5 * time.Minute, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "1m 5s", FormatDuration(65*time.Second))
	assert.Equal(t, "1d 2h", FormatDuration(26*time.Hour))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "averylo...", TruncateString("averylongfilename.txt", 10))
	assert.Equal(t, "ré", TruncateString("résumé", 2))
}

func TestShortenPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "~", ShortenPath(home))
	assert.Equal(t, filepath.Join("~", "docs", "a.txt"), ShortenPath(filepath.Join(home, "docs", "a.txt")))
	assert.Equal(t, string(os.PathSeparator)+"elsewhere", ShortenPath(string(os.PathSeparator)+"elsewhere"))
}
