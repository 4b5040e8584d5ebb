// Package logtail follows the system diagnostic log while a program runs and
// forwards the lines matching the configured info and error patterns.
//
// The log source is either a shell command whose standard output is read line
// by line (interpreted in-process by mvdan.cc/sh) or a file that is followed
// as it grows.
package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/funvibe/jot/internal/config"
)

// LogLine is one forwarded line of the diagnostic log.
type LogLine struct {
	Text    string
	IsError bool
}

// Tailer reads one log source for the lifetime of an execution.
type Tailer struct {
	cfg    config.LogTailConfig
	info   *regexp.Regexp
	errs   *regexp.Regexp
	logger *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	stopped bool
}

// New validates cfg. A disabled config yields a tailer whose Start does nothing.
func New(cfg config.LogTailConfig, logger *log.Logger) (*Tailer, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Command != "" && cfg.File != "" {
		return nil, errors.New("logtail: command and file are mutually exclusive")
	}
	t := &Tailer{cfg: cfg, logger: logger}
	var err error
	if t.info, err = compile(cfg.InfoPattern); err != nil {
		return nil, fmt.Errorf("logtail: info pattern: %w", err)
	}
	if t.errs, err = compile(cfg.ErrorPattern); err != nil {
		return nil, fmt.Errorf("logtail: error pattern: %w", err)
	}
	return t, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// Classify reports whether text passes the filters, and as which kind.
// The error pattern wins when both match.
func (t *Tailer) Classify(text string) (LogLine, bool) {
	switch {
	case t.errs != nil && t.errs.MatchString(text):
		return LogLine{Text: text, IsError: true}, true
	case t.info != nil && t.info.MatchString(text):
		return LogLine{Text: text}, true
	}
	return LogLine{}, false
}

// Start begins reading in the background. onLine is called from the
// tailer's reader goroutine.
func (t *Tailer) Start(ctx context.Context, onLine func(LogLine)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.group != nil || t.stopped {
		return errors.New("logtail: already started")
	}
	if t.cfg.Disabled || (t.cfg.Command == "" && t.cfg.File == "") {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	t.cancel = cancel
	t.group = g

	emit := func(text string) {
		if line, ok := t.Classify(text); ok {
			onLine(line)
		}
	}

	if t.cfg.File != "" {
		g.Go(func() error { return followFile(ctx, t.cfg.File, emit) })
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(t.cfg.Command), "logtail")
	if err != nil {
		cancel()
		t.group = nil
		return fmt.Errorf("logtail: parse command: %w", err)
	}

	pr, pw := io.Pipe()
	stderr := t.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}).Writer()
	runner, err := interp.New(interp.StdIO(nil, pw, stderr))
	if err != nil {
		cancel()
		t.group = nil
		return fmt.Errorf("logtail: create interpreter: %w", err)
	}

	g.Go(func() error {
		err := runner.Run(ctx, prog)
		pw.CloseWithError(io.EOF)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("log command %q: %w", t.cfg.Command, err)
		}
		return nil
	})
	g.Go(func() error {
		defer pr.Close()
		return scanLines(pr, emit)
	})
	return nil
}

// Stop cancels the source and waits for every reader goroutine. Errors are
// logged, never returned. Stop is idempotent and may precede Start.
func (t *Tailer) Stop() {
	t.mu.Lock()
	t.stopped = true
	cancel, g := t.cancel, t.group
	t.mu.Unlock()

	if g == nil {
		return
	}
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Warn("log tail failed", "err", err)
	}
}

func scanLines(r io.Reader, emit func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		emit(strings.TrimSuffix(sc.Text(), "\r"))
	}
	return sc.Err()
}
