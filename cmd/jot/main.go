// Command jot compiles, links and runs Jot programs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/engine"
)

// Version is set via -ldflags.
var Version = "dev"

// ExitError carries the process exit code out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// app holds state shared by every subcommand.
type app struct {
	cfgFile  string
	buildDir string
	libDir   string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jot",
		Short:         "Compile and run Jot programs",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: nearest "+config.ConfigFileName+")")
	flags.StringVar(&a.buildDir, "build-dir", "", "build directory")
	flags.StringVar(&a.libDir, "lib", "", "library directory of .jar and .jclass files")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newRunCmd(a),
		newBuildCmd(a),
		newEntriesCmd(a),
		newFmtCmd(a),
		newDisasmCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// init loads the configuration and applies flag overrides.
func (a *app) init(cmd *cobra.Command) error {
	path := a.cfgFile
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		if path, err = config.FindConfig(wd); err != nil {
			return err
		}
	}

	a.cfg = config.Default()
	if path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	flags := cmd.Flags()
	if flags.Changed("build-dir") {
		a.cfg.BuildDir = a.buildDir
	}
	if flags.Changed("lib") {
		a.cfg.LibraryDir = a.libDir
	}
	if flags.Changed("log-level") {
		a.cfg.LogLevel = a.logLevel
	}

	level, err := log.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "jot", Level: level})
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, engine.Describe(exitErr.Err))
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, engine.Describe(err))
	os.Exit(1)
}
