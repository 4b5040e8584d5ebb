package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/transform"
)

func newBuildCmd(a *app) *cobra.Command {
	var library bool
	cmd := &cobra.Command{
		Use:   "build <source>",
		Short: "Compile and link without running",
		Long: `Compile a source file or directory into build/classes.jar and link it
into build/dex/program.jex. With --library only the jar is produced, ready
to be placed in another program's library directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			task := compiler.Task{SourcePath: args[0], BuildDir: a.cfg.BuildDir, LibraryDir: a.cfg.LibraryDir}
			progress := func(p compiler.Progress) {
				a.logger.Debug("progress", "task", p.Task, "percent", p.Percent)
			}

			if library {
				art, err := compiler.CompileLibrary(ctx, task, progress)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, art.JarPath)
				return nil
			}

			art, err := compiler.Compile(ctx, task, progress)
			if err != nil {
				return err
			}
			exe, err := transform.Transform(ctx, art, a.cfg.BuildDir, progress)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (%d classes, entry points: %v)\n", exe.Path, len(exe.Classes), exe.MainClasses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&library, "library", false, "only write classes.jar")
	return cmd
}

func newEntriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entries [program.jex]",
		Short: "List the classes of a linked program that declare main",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.executablePath(args)
			names, err := entry.Inspect(path)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// executablePath is args[0] or the linked program in the build directory.
func (a *app) executablePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(a.cfg.BuildDir, config.ExecutableDirName, config.ExecutableName)
}
