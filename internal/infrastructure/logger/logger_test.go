package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log = config.LogConfig{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "app.log")}

	l, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Sync() })

	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
	assert.Same(t, l, zap.L())
}

func TestNew_InvalidLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "verbose"

	_, err := New(cfg)
	assert.Error(t, err)
}
