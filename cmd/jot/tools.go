package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/history"
	"github.com/funvibe/jot/internal/prettyprinter"
	"github.com/funvibe/jot/internal/vm"
)

func newFmtCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <source>...",
		Short: "Reformat source files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				paths, err := compiler.SourceFiles(arg)
				if err != nil {
					return err
				}
				for _, path := range paths {
					src, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					out, err := prettyprinter.Format(string(src))
					if err != nil {
						return err
					}
					if !write {
						fmt.Fprint(cmd.OutOrStdout(), out)
						continue
					}
					if out != string(src) {
						if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
							return err
						}
						a.logger.Info("formatted", "file", path)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the source files")
	return cmd
}

func newDisasmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [program.jex | class.jclass]",
		Short: "Print the bytecode of a linked program or a class file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.executablePath(args)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if filepath.Ext(path) == config.ClassFileExt {
				cf, err := vm.DecodeClassFile(data)
				if err != nil {
					return err
				}
				fmt.Fprint(out, vm.DisassembleClass(cf))
				return nil
			}

			prog, err := vm.DeserializeProgram(data)
			if err != nil {
				return err
			}
			for _, cf := range prog.Classes {
				fmt.Fprint(out, vm.DisassembleClass(cf))
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.History.Path == "" {
				return fmt.Errorf("run history is disabled: set history.path in %s", config.ConfigFileName)
			}
			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tSOURCE\tENTRY\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID[:8], r.StartedAt.Format(time.DateTime), r.Status, r.Source, r.Entry, r.Duration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show; 0 shows all")
	return cmd
}
