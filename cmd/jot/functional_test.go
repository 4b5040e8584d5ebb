package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var progressLine = regexp.MustCompile(`^\s*\d+% Compiling: `)

// TestFunctional runs every testdata/functional/*.jot program through the run
// command and compares its stdout with the .want file and, when present, its
// stderr with the .err file. Progress lines are not part of the comparison.
func TestFunctional(t *testing.T) {
	sources, err := filepath.Glob(filepath.Join("testdata", "functional", "*.jot"))
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	for _, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), ".jot")
		t.Run(name, func(t *testing.T) {
			want, err := os.ReadFile(strings.TrimSuffix(src, ".jot") + ".want")
			require.NoError(t, err)
			wantErr, err := os.ReadFile(strings.TrimSuffix(src, ".jot") + ".err")
			if err != nil {
				require.ErrorIs(t, err, os.ErrNotExist)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, filepath.Base(src))
			data, err := os.ReadFile(src)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, data, 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "jot.yaml"), []byte("log_level: error\n"), 0o644))

			var stdout, stderr bytes.Buffer
			cmd := newRootCmd()
			cmd.SetIn(strings.NewReader(""))
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			cmd.SetArgs([]string{"--config", filepath.Join(dir, "jot.yaml"), "run", "--no-log", path})
			runErr := cmd.ExecuteContext(context.Background())

			require.Equal(t, normalize(string(want)), normalize(stdout.String()))
			require.Equal(t, normalize(string(wantErr)), normalize(withoutProgress(stderr.String())))
			if len(wantErr) > 0 && strings.HasPrefix(string(wantErr), "Exception") {
				var ee *ExitError
				require.ErrorAs(t, runErr, &ee)
				require.Equal(t, 1, ee.Code)
			} else {
				require.NoError(t, runErr)
			}
		})
	}
}

func withoutProgress(s string) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if !progressLine.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
