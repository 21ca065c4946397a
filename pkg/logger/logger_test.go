package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "filepulse.log")

	cfg := DefaultConfig()
	cfg.OutputPath = path
	cfg.Compress = false
	cfg.EnableJSON = true

	l, err := Build(cfg)
	require.NoError(t, err)

	l.Info("watch started", zap.String("root", "/tmp/x"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"watch started"`)
	assert.Contains(t, string(data), `"root":"/tmp/x"`)
}

func TestBuildFallsBackToInfoOnBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputPath = filepath.Join(t.TempDir(), "x.log")
	cfg.Level = "loud"

	l, err := Build(cfg)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestReplace(t *testing.T) {
	nop := zap.NewNop()
	Replace(nop)

	assert.Same(t, nop, Get())
	assert.NotNil(t, WithSession(nil, "abc"))
	assert.NoError(t, Sync())
}

func TestWithSessionTagsBase(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	WithSession(zap.New(core), "session-1").Info("Directory watcher started")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "session-1", logs.All()[0].ContextMap()["session_id"])
}
