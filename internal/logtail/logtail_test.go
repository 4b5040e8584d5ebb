package logtail

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/jot/internal/config"
)

type sink struct {
	mu    sync.Mutex
	lines []LogLine
}

func (s *sink) add(l LogLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l)
}

func (s *sink) snapshot() []LogLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogLine(nil), s.lines...)
}

func (s *sink) waitFor(t *testing.T, n int) []LogLine {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.snapshot()) >= n }, 5*time.Second, 5*time.Millisecond)
	return s.snapshot()
}

func quiet() *log.Logger { return log.New(io.Discard) }

func TestClassify(t *testing.T) {
	tl, err := New(config.LogTailConfig{
		InfoPattern:  config.DefaultInfoPattern,
		ErrorPattern: config.DefaultErrorPattern,
	}, quiet())
	require.NoError(t, err)

	line, ok := tl.Classify("I/System.out( 123): hello")
	require.True(t, ok)
	require.False(t, line.IsError)

	line, ok = tl.Classify("W/System.err( 123): boom")
	require.True(t, ok)
	require.True(t, line.IsError)

	_, ok = tl.Classify("D/dalvikvm( 1): gc")
	require.False(t, ok)
}

func TestClassifyErrorWins(t *testing.T) {
	tl, err := New(config.LogTailConfig{InfoPattern: "x", ErrorPattern: "x"}, quiet())
	require.NoError(t, err)
	line, ok := tl.Classify("x")
	require.True(t, ok)
	require.True(t, line.IsError)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.LogTailConfig{Command: "a", File: "b"}, quiet())
	require.Error(t, err)

	_, err = New(config.LogTailConfig{InfoPattern: "("}, quiet())
	require.ErrorContains(t, err, "info pattern")

	_, err = New(config.LogTailConfig{ErrorPattern: "["}, quiet())
	require.ErrorContains(t, err, "error pattern")
}

func TestCommandSource(t *testing.T) {
	tl, err := New(config.LogTailConfig{
		Command:      `printf 'I/System.out: hello\nD/Other: skip\nW/System.err: oops\r\n'`,
		InfoPattern:  config.DefaultInfoPattern,
		ErrorPattern: config.DefaultErrorPattern,
	}, quiet())
	require.NoError(t, err)

	var s sink
	require.NoError(t, tl.Start(context.Background(), s.add))
	lines := s.waitFor(t, 2)
	tl.Stop()

	require.Equal(t, []LogLine{
		{Text: "I/System.out: hello"},
		{Text: "W/System.err: oops", IsError: true},
	}, lines)
}

func TestCommandFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	tl, err := New(config.LogTailConfig{Command: "exit 3", InfoPattern: "."}, log.New(&logs))
	require.NoError(t, err)

	require.NoError(t, tl.Start(context.Background(), func(LogLine) {}))
	time.Sleep(20 * time.Millisecond)
	tl.Stop()
	require.Contains(t, logs.String(), "log tail failed")
}

func TestCommandParseError(t *testing.T) {
	tl, err := New(config.LogTailConfig{Command: "echo 'unterminated", InfoPattern: "."}, quiet())
	require.NoError(t, err)
	require.ErrorContains(t, tl.Start(context.Background(), func(LogLine) {}), "parse command")
}

func TestStopInterruptsLongRunningCommand(t *testing.T) {
	tl, err := New(config.LogTailConfig{
		Command:     `printf 'I/System.out: ready\n'; while true; do sleep 1; done`,
		InfoPattern: config.DefaultInfoPattern,
	}, quiet())
	require.NoError(t, err)

	var s sink
	require.NoError(t, tl.Start(context.Background(), s.add))
	s.waitFor(t, 1)

	done := make(chan struct{})
	go func() {
		tl.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.log")
	require.NoError(t, os.WriteFile(path, []byte("I/System.out: first\nD/x: noise\n"), 0o644))

	tl, err := New(config.LogTailConfig{
		File:         path,
		InfoPattern:  config.DefaultInfoPattern,
		ErrorPattern: config.DefaultErrorPattern,
	}, quiet())
	require.NoError(t, err)

	var s sink
	require.NoError(t, tl.Start(context.Background(), s.add))
	s.waitFor(t, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("W/System.err: sec")
	require.NoError(t, err)
	_, err = f.WriteString("ond\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lines := s.waitFor(t, 2)
	tl.Stop()
	require.Equal(t, []LogLine{
		{Text: "I/System.out: first"},
		{Text: "W/System.err: second", IsError: true},
	}, lines)
}

func TestDisabledAndEmptySources(t *testing.T) {
	for _, cfg := range []config.LogTailConfig{
		{Disabled: true, Command: "printf 'I/System.out: x\n'", InfoPattern: "."},
		{InfoPattern: "."},
	} {
		tl, err := New(cfg, quiet())
		require.NoError(t, err)
		called := false
		require.NoError(t, tl.Start(context.Background(), func(LogLine) { called = true }))
		tl.Stop()
		require.False(t, called)
	}
}

func TestStartTwice(t *testing.T) {
	tl, err := New(config.LogTailConfig{Command: "true", InfoPattern: "."}, quiet())
	require.NoError(t, err)
	require.NoError(t, tl.Start(context.Background(), func(LogLine) {}))
	require.Error(t, tl.Start(context.Background(), func(LogLine) {}))
	tl.Stop()
	tl.Stop()

	stopped, err := New(config.LogTailConfig{Command: "true"}, quiet())
	require.NoError(t, err)
	stopped.Stop()
	require.Error(t, stopped.Start(context.Background(), func(LogLine) {}))
}
