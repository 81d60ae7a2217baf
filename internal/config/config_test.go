package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yifeimfd/usbip-win/pkg"
	"github.com/yifeimfd/usbip-win/stub/devconf"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, devconf.HeapPool{}, cfg.NewPool())
}

func TestParse(t *testing.T) {
	doc := []byte(`
log:
  level: debug
  format: json
  file: /var/log/usbip-stub.log
  max_backups: 5
pool:
  quota: 4096
fixture: hid.yaml
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB, "unset fields keep their defaults")
	assert.Equal(t, "hid.yaml", cfg.Fixture)

	pool, ok := cfg.NewPool().(*devconf.QuotaPool)
	require.True(t, ok)
	assert.Equal(t, int64(4096), pool.Limit())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"level", "log: {level: chatty}"},
		{"format", "log: {format: xml}"},
		{"rotation", "log: {max_size_mb: -1}"},
		{"quota", "pool: {quota: -5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
		})
	}

	_, err := Parse([]byte("log: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  quota: 128\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(128), cfg.Pool.Quota)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenLog(t *testing.T) {
	l := LogConfig{}
	w := l.OpenLog()
	assert.NoError(t, w.Close())

	l = LogConfig{File: filepath.Join(t.TempDir(), "stub.log"), MaxSizeMB: 1, MaxBackups: 2}
	w = l.OpenLog()
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, 1, lj.MaxSize)
	assert.Equal(t, 2, lj.MaxBackups)
	assert.NoError(t, w.Close())
}

func TestApply(t *testing.T) {
	original := pkg.DefaultLogger
	level := pkg.GetLogLevel()
	defer func() {
		pkg.SetLogger(original)
		pkg.SetLogLevel(level)
	}()

	path := filepath.Join(t.TempDir(), "stub.log")
	l := LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}
	w, err := l.Apply()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, pkg.GetLogLevel())

	pkg.LogInfo(pkg.ComponentShell, "applied")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte(`"msg":"applied"`)), string(data))

	_, err = (&LogConfig{Level: "nope"}).Apply()
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}
