package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, `
inputs:
  - docs1
  - /abs/docs2
symlink_dir: build/stage
output_dir: build/html
quiet_period: 250ms
monitor: true
build_command: [sphinx-build]
build_args: [-b, html]
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, p, cfg.Path())
	assert.Equal(t, []string{filepath.Join(dir, "docs1"), filepath.Clean("/abs/docs2")}, cfg.Inputs)
	assert.Equal(t, filepath.Join(dir, "build", "stage"), cfg.SymlinkDir)
	assert.Equal(t, filepath.Join(dir, "build", "html"), cfg.OutputDir)
	assert.Equal(t, 250*time.Millisecond, cfg.QuietDuration())
	assert.True(t, cfg.Monitor)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, []string{"sphinx-build"}, cfg.BuildCommand)
	assert.Equal(t, []string{"-b", "html"}, cfg.BuildArgs)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "inputs: [docs]\nsymlink_dir: stage\noutput_dir: out\n")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuietPeriod, cfg.QuietDuration())
	assert.Equal(t, CurrentVersion, cfg.Version)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, ErrNotFound)

	bad := writeConfig(t, t.TempDir(), "quiet_period: soon\n")
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalid)

	broken := writeConfig(t, t.TempDir(), "inputs: [unterminated\n")
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := NewDefault()
		c.Inputs = []string{"/src/docs1", "/src/docs2"}
		c.SymlinkDir = "/build/stage"
		c.OutputDir = "/build/html"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no inputs", func(c *Config) { c.Inputs = nil }},
		{"no symlink dir", func(c *Config) { c.SymlinkDir = "" }},
		{"no output dir", func(c *Config) { c.OutputDir = "" }},
		{"negative quiet period", func(c *Config) { c.QuietPeriod = Duration(-time.Second) }},
		{"duplicate inputs", func(c *Config) { c.Inputs = []string{"/src/docs1", "/src/docs1"} }},
		{"symlink dir is an input", func(c *Config) { c.SymlinkDir = "/src/docs1" }},
		{"symlink dir inside an input", func(c *Config) { c.SymlinkDir = "/src/docs2/_stage" }},
		{"output dir inside an input", func(c *Config) { c.OutputDir = "/src/docs1/_build" }},
		{"future version", func(c *Config) { c.Version = CurrentVersion + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_SiblingWithSharedPrefixIsFine(t *testing.T) {
	c := NewDefault()
	c.Inputs = []string{"/src/docs"}
	c.SymlinkDir = "/src/docs-stage"
	c.OutputDir = "/src/docs-html"
	assert.NoError(t, c.Validate())
}

func TestFindFile(t *testing.T) {
	root := t.TempDir()
	p := writeConfig(t, root, "inputs: [docs]\n")
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o750))

	found, err := FindFile(deep)
	require.NoError(t, err)
	assert.Equal(t, p, found)
}
