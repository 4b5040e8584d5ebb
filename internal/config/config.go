package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is searched from the working directory upwards.
const ConfigFileName = "jot.yaml"

// Defaults for the diagnostic log tailer.
const (
	DefaultLogCommand   = "logcat -v brief System.out:I System.err:W *:S"
	DefaultInfoPattern  = `I/System\.out`
	DefaultErrorPattern = `W/System\.err`
	DefaultBuildDir     = "build"
	DefaultLogLevel     = "info"
)

// Config represents jot.yaml.
type Config struct {
	// BuildDir receives classes/, classes.jar and dex/program.jex.
	BuildDir string `yaml:"build_dir,omitempty"`

	// LibraryDir holds prebuilt .jar archives and loose .jclass files.
	LibraryDir string `yaml:"library_dir,omitempty"`

	// SelectionTimeout bounds interactive entry-point selection. Zero waits forever.
	SelectionTimeout time.Duration `yaml:"selection_timeout,omitempty"`

	// Format reprints the source before compiling it.
	Format bool `yaml:"format,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`

	LogTail LogTailConfig `yaml:"log_tail,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// LogTailConfig selects the diagnostic log source and its filters.
// Command and File are mutually exclusive.
type LogTailConfig struct {
	Disabled     bool   `yaml:"disabled,omitempty"`
	Command      string `yaml:"command,omitempty"`
	File         string `yaml:"file,omitempty"`
	InfoPattern  string `yaml:"info_pattern,omitempty"`
	ErrorPattern string `yaml:"error_pattern,omitempty"`
}

type HistoryConfig struct {
	// Path of the sqlite database. Empty disables run history.
	Path string `yaml:"path,omitempty"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9091".
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no jot.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a jot.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses jot.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

// FindConfig searches for jot.yaml starting from dir and walking up.
// It returns "" and a nil error when no file is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		candidate = filepath.Join(dir, "jot.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	if c.SelectionTimeout < 0 {
		return fmt.Errorf("%s: selection_timeout must not be negative", path)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s: log_level %q is not one of debug, info, warn, error", path, c.LogLevel)
	}

	lt := c.LogTail
	if lt.Command != "" && lt.File != "" {
		return fmt.Errorf("%s: log_tail: command and file are mutually exclusive", path)
	}
	for name, pattern := range map[string]string{"info_pattern": lt.InfoPattern, "error_pattern": lt.ErrorPattern} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s: log_tail.%s: %w", path, name, err)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.BuildDir == "" {
		c.BuildDir = DefaultBuildDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogTail.InfoPattern == "" {
		c.LogTail.InfoPattern = DefaultInfoPattern
	}
	if c.LogTail.ErrorPattern == "" {
		c.LogTail.ErrorPattern = DefaultErrorPattern
	}
	if c.LogTail.Command == "" && c.LogTail.File == "" {
		c.LogTail.Command = DefaultLogCommand
	}
}

// resolvePaths makes relative directories relative to the config file.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.BuildDir, &c.LibraryDir, &c.LogTail.File, &c.History.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
