package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jamestexas/apex-log-parsin/internal/render"
	"github.com/jamestexas/apex-log-parsin/internal/splitter"
)

func newParseCmd(a *app) *cobra.Command {
	var split bool
	cmd := &cobra.Command{
		Use:   "parse [files|-]",
		Short: "Parse debug logs and print the result as JSON or YAML",
		Long: `Parse one or more debug logs and print, per log, its metadata, declared
log levels, user, call tree and flattened event list.

Examples:
  apexlog parse run.log
  apexlog parse "logs/**/*.log" -o yaml
  sfdx force:apex:log:get -n 5 | apexlog parse --split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.loadLogs(cmd.Context(), args, split)
			if err != nil {
				return err
			}
			enc, err := render.NewEncoder(a.cfg.Output, cmd.OutOrStdout(), a.cfg.Pretty)
			if err != nil {
				return err
			}
			for _, log := range logs {
				if err := enc.Encode(log); err != nil {
					return err
				}
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&split, "split", false, "treat each input as a stream of concatenated logs")
	return cmd
}

func newTreeCmd(a *app) *cobra.Command {
	var split bool
	cmd := &cobra.Command{
		Use:   "tree [files|-]",
		Short: "Print the call tree of debug logs with timings",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.loadLogs(cmd.Context(), args, split)
			if err != nil {
				return err
			}
			printer := a.cfg.TreePrinter()
			for i, log := range logs {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := printer.Print(cmd.OutOrStdout(), log); err != nil {
					return errors.Wrap(err, "printing tree")
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&split, "split", false, "treat each input as a stream of concatenated logs")
	flags.Int("bar-width", render.DefaultBarWidth, "width of the duration bar for the longest node")
	flags.Bool("color", true, "color node types and bars")
	flags.Float64("min-duration", 0, "hide nodes faster than this many milliseconds")
	a.bind(flags.Lookup("bar-width"), "tree.bar_width")
	a.bind(flags.Lookup("color"), "tree.color")
	a.bind(flags.Lookup("min-duration"), "tree.min_duration_ms")
	return cmd
}

func newSplitCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "split [file|-]",
		Short: "Split a stream of concatenated debug logs into one file per log",
		Long: `Split a stream of concatenated debug logs on their header lines and write
each log to <out-dir>/<name>-<seq>.log. Anything before the first header
is dropped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.inputPaths(args)
			if err != nil {
				return err
			}
			if len(paths) != 1 {
				return errors.New("split needs exactly one file or piped stdin")
			}
			path := paths[0]
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrapf(err, "creating %s", outDir)
			}

			base := baseName(path)
			var writeErr error
			sp := splitter.New(func(text string, seq int) {
				if writeErr != nil {
					return
				}
				target := filepath.Join(outDir, fmt.Sprintf("%s-%d.log", base, seq))
				if err := os.WriteFile(target, []byte(text+"\n"), 0o644); err != nil {
					writeErr = errors.Wrapf(err, "writing %s", target)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), target)
			})
			if err := a.reader.Lines(cmd.Context(), path, sp.ProcessLine); err != nil {
				return err
			}
			sp.Finalize()
			if writeErr != nil {
				return writeErr
			}
			a.log.WithField("logs", sp.Count()).Info("split complete")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "d", ".", "directory the split logs are written to")
	return cmd
}

func newViewCmd(a *app) *cobra.Command {
	var split bool
	cmd := &cobra.Command{
		Use:   "view [files|-]",
		Short: "Browse the events of debug logs in a terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.loadLogs(cmd.Context(), args, split)
			if err != nil {
				return err
			}
			model := NewModel(logs)
			a.log.WithField("events", len(model.events)).Debug("starting TUI")
			return errors.Wrap(a.runTUI(model), "running TUI")
		},
	}
	cmd.Flags().BoolVar(&split, "split", false, "treat each input as a stream of concatenated logs")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "apexlog", version)
		},
	}
}
