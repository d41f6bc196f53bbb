package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no multibuild.yml found")
	ErrInvalid  = errors.New("invalid config")
)

// Config holds everything needed to merge the inputs and run the build.
type Config struct {
	Version      int      `yaml:"version,omitempty"`
	Inputs       []string `yaml:"inputs"`
	SymlinkDir   string   `yaml:"symlink_dir"`
	OutputDir    string   `yaml:"output_dir"`
	QuietPeriod  Duration `yaml:"quiet_period,omitempty"`
	Monitor      bool     `yaml:"monitor,omitempty"`
	Quiet        bool     `yaml:"quiet,omitempty"`
	BuildCommand []string `yaml:"build_command,omitempty"`
	BuildArgs    []string `yaml:"build_args,omitempty"`

	// path is the file the config was loaded from (not serialized).
	path string `yaml:"-"`
}

// Duration is a time.Duration written as a Go duration string ("750ms", "2s").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("%w: quiet_period %q: %w", ErrInvalid, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version:     CurrentVersion,
		QuietPeriod: Duration(DefaultQuietPeriod),
	}
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// QuietDuration returns the quiet period, falling back to DefaultQuietPeriod.
func (c *Config) QuietDuration() time.Duration {
	if c.QuietPeriod <= 0 {
		return DefaultQuietPeriod
	}
	return time.Duration(c.QuietPeriod)
}

// Validate checks the config for errors. Paths must already be absolute.
func (c *Config) Validate() error {
	if c.Version != 0 && c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("%w: at least one input directory is required", ErrInvalid)
	}
	if c.SymlinkDir == "" {
		return fmt.Errorf("%w: symlink_dir is required", ErrInvalid)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalid)
	}
	if c.QuietPeriod < 0 {
		return fmt.Errorf("%w: quiet_period must not be negative", ErrInvalid)
	}
	if hasDuplicates(c.Inputs) {
		return fmt.Errorf("%w: inputs contain duplicates", ErrInvalid)
	}
	for _, in := range c.Inputs {
		if within(in, c.SymlinkDir) {
			return fmt.Errorf("%w: symlink_dir %s must not be inside input %s", ErrInvalid, c.SymlinkDir, in)
		}
		// The build writing into a watched tree would retrigger itself forever.
		if within(in, c.OutputDir) {
			return fmt.Errorf("%w: output_dir %s must not be inside input %s", ErrInvalid, c.OutputDir, in)
		}
	}
	return nil
}

// Resolve makes every path absolute. Relative paths are taken relative to
// base, normally the directory of the config file.
func (c *Config) Resolve(base string) error {
	abs := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		resolved, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolving path: %w", err)
		}
		return resolved, nil
	}

	for i, in := range c.Inputs {
		resolved, err := abs(in)
		if err != nil {
			return err
		}
		c.Inputs[i] = resolved
	}
	var err error
	if c.SymlinkDir, err = abs(c.SymlinkDir); err != nil {
		return err
	}
	if c.OutputDir, err = abs(c.OutputDir); err != nil {
		return err
	}
	return nil
}

// Load reads a config file and resolves its paths against the file's directory.
// It does not validate: flags may still fill in missing fields.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, absPath)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.path = absPath

	if err := cfg.Resolve(filepath.Dir(absPath)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindFile walks upward from startDir looking for multibuild.yml and returns
// its absolute path.
func FindFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func hasDuplicates(slice []string) bool {
	seen := make(map[string]bool, len(slice))
	for _, s := range slice {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}
