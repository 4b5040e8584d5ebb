package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, DefaultBuildDir, cfg.BuildDir)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultLogCommand, cfg.LogTail.Command)
	require.Equal(t, DefaultInfoPattern, cfg.LogTail.InfoPattern)
	require.Equal(t, DefaultErrorPattern, cfg.LogTail.ErrorPattern)
	require.Zero(t, cfg.SelectionTimeout)
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
build_dir: out
library_dir: /opt/jot/lib
selection_timeout: 30s
format: true
log_level: debug
log_tail:
  file: logs/device.log
  error_pattern: "E/"
history:
  path: runs.db
metrics:
  addr: ":9091"
`)
	cfg, err := ParseConfig(data, "/work/project/jot.yaml")
	require.NoError(t, err)

	require.Equal(t, filepath.FromSlash("/work/project/out"), cfg.BuildDir)
	require.Equal(t, "/opt/jot/lib", cfg.LibraryDir)
	require.Equal(t, 30*time.Second, cfg.SelectionTimeout)
	require.True(t, cfg.Format)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, filepath.FromSlash("/work/project/logs/device.log"), cfg.LogTail.File)
	require.Empty(t, cfg.LogTail.Command, "a file source suppresses the default command")
	require.Equal(t, "E/", cfg.LogTail.ErrorPattern)
	require.Equal(t, DefaultInfoPattern, cfg.LogTail.InfoPattern)
	require.Equal(t, filepath.FromSlash("/work/project/runs.db"), cfg.History.Path)
	require.Equal(t, ":9091", cfg.Metrics.Addr)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"malformed", "build_dir: [", "parsing"},
		{"negative timeout", "selection_timeout: -1s", "selection_timeout must not be negative"},
		{"log level", "log_level: loud", `log_level "loud"`},
		{"two sources", "log_tail:\n  command: logcat\n  file: x.log", "mutually exclusive"},
		{"bad pattern", "log_tail:\n  info_pattern: \"(\"", "log_tail.info_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "jot.yaml")
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFindAndLoadConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path, err := FindConfig(nested)
	require.NoError(t, err)
	if path != "" {
		// A jot.yaml above the temp dir would shadow this test.
		t.Skipf("found unrelated config at %s", path)
	}

	cfgPath := filepath.Join(root, "jot.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("build_dir: target\n"), 0o644))

	path, err = FindConfig(nested)
	require.NoError(t, err)
	require.Equal(t, cfgPath, path)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "target"), cfg.BuildDir)

	_, err = LoadConfig(filepath.Join(root, "missing.yaml"))
	require.ErrorContains(t, err, "reading config")
}
