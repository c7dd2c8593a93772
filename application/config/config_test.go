package config_test

import (
	stdErrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gal-dev/galrt/application/config"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/log"
)

func TestParse(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(`
ident: fireworks
game: main
plugin_dir: plugins
plugins: [ruby, format]
resources: [res/zh.yaml, res/base.yaml]
log_level: debug
language: zh-Hans
`))
	require.NoError(t, err)
	assert.Equal(t, config.Config{
		Ident:     "fireworks",
		Game:      "main",
		PluginDir: "plugins",
		Plugins:   []string{"ruby", "format"},
		Resources: []string{"res/zh.yaml", "res/base.yaml"},
		LogLevel:  "debug",
		Language:  "zh-Hans",
	}, cfg)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("ident: a\nplugin_dir: p\n"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultLanguage, cfg.Language)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestParse_TraceLevel(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("ident: a\nplugin_dir: p\nlog_level: trace\n"))
	require.NoError(t, err)
	assert.Equal(t, log.LevelTrace, cfg.SlogLevel())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"empty document", "", "ident"},
		{"missing ident", "plugin_dir: p\n", "ident"},
		{"missing plugin dir", "ident: a\n", "plugin_dir"},
		{"ident with separator", "ident: a/b\nplugin_dir: p\n", "ident"},
		{"game with separator", "ident: a\ngame: ../x\nplugin_dir: p\n", "game"},
		{"bad log level", "ident: a\nplugin_dir: p\nlog_level: loud\n", "log_level"},
		{"bad language", "ident: a\nplugin_dir: p\nlanguage: not a tag\n", "language"},
		{"empty plugin name", "ident: a\nplugin_dir: p\nplugins: ['']\n", "plugins[0]"},
		{"unknown key", "ident: a\nplugin_dir: p\nextra: 1\n", ""},
		{"malformed yaml", "ident: [a\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tt.doc))
			var cerr *errors.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "elsewhere", "base.yaml")
	path := filepath.Join(dir, "galrt.yaml")
	doc := "ident: a\nplugin_dir: plugins\nresources: [res/zh.yaml, " + abs + "]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plugins"), cfg.PluginDir)
	assert.Equal(t, []string{filepath.Join(dir, "res", "zh.yaml"), abs}, cfg.Resources)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, stdErrors.Is(err, os.ErrNotExist))

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plugin_dir: p\n"), 0o600))
	_, err = config.Load(path)
	var cerr *errors.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), path)
}
