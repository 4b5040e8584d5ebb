package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/engine"
	"github.com/funvibe/jot/internal/history"
	"github.com/funvibe/jot/internal/host"
	"github.com/funvibe/jot/internal/logtail"
	"github.com/funvibe/jot/internal/metrics"
	"github.com/funvibe/jot/internal/vm"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		mainClass string
		format    bool
		noLog     bool
	)
	cmd := &cobra.Command{
		Use:   "run <source> [-- args...]",
		Short: "Compile, link and run a source file or directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stdin := bufio.NewReader(cmd.InOrStdin())
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

			opts := engine.Options{
				Args:             args[1:],
				SelectionTimeout: a.cfg.SelectionTimeout,
				LogTail:          a.cfg.LogTail,
				Format:           format || a.cfg.Format,
				Logger:           a.logger,
				OnProgress: func(p compiler.Progress) {
					fmt.Fprintf(stderr, "%3d%% Compiling: %s\n", p.Percent, p.Task)
				},
				OnStdout: func(line string) { fmt.Fprintln(stdout, line) },
				OnStderr: func(line string) { fmt.Fprintln(stderr, line) },
				OnLog: func(line logtail.LogLine) {
					if line.IsError {
						a.logger.Error(line.Text)
						return
					}
					a.logger.Info(line.Text)
				},
				SelectEntryPoint: a.selector(mainClass, stdin, stderr),
			}
			if noLog {
				opts.LogTail.Disabled = true
			}

			if a.cfg.History.Path != "" {
				store, err := history.Open(a.cfg.History.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.History = store
			}
			if a.cfg.Metrics.Addr != "" {
				rec := metrics.NewRecorder()
				go func() {
					if err := rec.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
						a.logger.Warn("metrics server stopped", "err", err)
					}
				}()
				opts.Metrics = rec
			}

			con, err := engine.CompileAndRun(ctx, compiler.Task{
				SourcePath: args[0],
				BuildDir:   a.cfg.BuildDir,
				LibraryDir: a.cfg.LibraryDir,
			}, opts)
			if err != nil {
				return err
			}

			go forwardStdin(stdin, con.InputStdin)
			return exitError(con.Wait(), stderr)
		},
	}
	cmd.Flags().StringVar(&mainClass, "main", "", "entry class to run when several declare main")
	cmd.Flags().BoolVar(&format, "format", false, "reformat the sources before compiling")
	cmd.Flags().BoolVar(&noLog, "no-log", false, "do not tail the diagnostic log")
	return cmd
}

// selector picks the entry point: --main when given, a prompt when both
// stdin and stderr are terminals, otherwise the first candidate.
func (a *app) selector(mainClass string, in *bufio.Reader, out io.Writer) entry.Selector {
	if mainClass != "" {
		return func(req *entry.ResolutionRequest) {
			if err := req.Resolve(mainClass); err != nil {
				_ = req.Cancel(fmt.Sprintf("--main %s: %v", mainClass, err))
			}
		}
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stderr) {
		return entry.AutoSelect
	}
	return prompt(in, out)
}

type readResult struct {
	line string
	err  error
}

// prompt asks on out and reads the answer from in. It gives up as soon as
// the request is completed elsewhere, e.g. by the selection timeout or an
// interrupt; the pending read then finishes on its own goroutine.
func prompt(in *bufio.Reader, out io.Writer) entry.Selector {
	return func(req *entry.ResolutionRequest) {
		for {
			fmt.Fprintln(out, "Please select a main function to run:")
			for i, c := range req.Candidates {
				fmt.Fprintf(out, "  %d) %s\n", i+1, c)
			}
			fmt.Fprint(out, "number (q to cancel): ")

			answered := make(chan readResult, 1)
			go func() {
				line, err := in.ReadString('\n')
				answered <- readResult{line, err}
			}()

			var res readResult
			select {
			case res = <-answered:
			case <-req.Done():
				fmt.Fprintln(out)
				return
			}

			answer := strings.TrimSpace(res.line)
			if res.err != nil || answer == "q" {
				_ = req.Cancel("cancelled by user")
				return
			}
			n, convErr := strconv.Atoi(answer)
			if convErr == nil && n >= 1 && n <= len(req.Candidates) {
				if req.Resolve(req.Candidates[n-1]) == nil {
					return
				}
			}
			if req.Resolve(answer) == nil {
				return
			}
			fmt.Fprintf(out, "%q is not a candidate\n", answer)
		}
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// forwardStdin copies the terminal's input to the program line by line.
func forwardStdin(in *bufio.Reader, input func(string)) {
	for {
		line, err := in.ReadString('\n')
		if line != "" {
			input(line)
		}
		if err != nil {
			return
		}
	}
}

// exitError maps a finished program to the process exit code: System.exit's
// argument when it called it, 1 for any other failure. An uncaught exception
// is printed with its stack trace.
func exitError(err error, stderr io.Writer) error {
	if err == nil {
		return nil
	}
	var exit *vm.ExitError
	if errors.As(err, &exit) {
		return &ExitError{Code: exit.Code}
	}
	var invocation *host.InvocationError
	if errors.As(err, &invocation) {
		if exc, ok := invocation.Cause.(*vm.Exception); ok {
			fmt.Fprintf(stderr, "Exception in thread \"main\" %s\n", exc.StackTrace())
			return &ExitError{Code: 1}
		}
	}
	return &ExitError{Code: 1, Err: err}
}
