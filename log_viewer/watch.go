package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jamestexas/apex-log-parsin/internal/render"
	"github.com/jamestexas/apex-log-parsin/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var emitJSON, initial bool
	cmd := &cobra.Command{
		Use:   "watch [dirs...]",
		Short: "Re-parse debug logs as they are written",
		Long: `Watch directories for debug logs matching --pattern and re-parse each one
whenever it is written. A one-line summary is printed per parse, or with
--emit-json the full result is written next to the log as <log>.json.

Examples:
  apexlog watch
  apexlog watch ./logs --pattern "**/*.log" --emit-json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}
			w, err := watcher.New(roots, a.cfg.Watch.Pattern, a.log)
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"dirs":    strings.Join(w.Roots(), ","),
				"pattern": a.cfg.Watch.Pattern,
			}).Info("watching for debug logs")

			handle := func(path string) {
				if err := a.reparse(cmd, path, emitJSON); err != nil {
					a.log.WithError(err).WithField("file", path).Warn("cannot parse log")
				}
			}
			if initial {
				existing, err := w.Existing()
				if err != nil {
					return err
				}
				for _, path := range existing {
					handle(path)
				}
			}
			return w.Run(ctx, handle)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&emitJSON, "emit-json", false, "write <log>.json next to each parsed log")
	flags.BoolVar(&initial, "initial", false, "parse matching logs that already exist before watching")
	flags.String("pattern", a.cfg.Watch.Pattern, "glob, relative to each dir, of the files to parse")
	a.bind(flags.Lookup("pattern"), "watch.pattern")
	return cmd
}

// reparse parses path and reports it as configured.
func (a *app) reparse(cmd *cobra.Command, path string, emitJSON bool) error {
	text, err := a.reader.ReadFile(path)
	if err != nil {
		return err
	}
	parsed := a.cfg.Parser().Parse(text, path)
	a.reportAnomalies(parsed)

	if !emitJSON {
		fmt.Fprintln(cmd.OutOrStdout(), render.Summary(parsed))
		return nil
	}

	target := path + ".json"
	f, err := os.Create(target)
	if err != nil {
		return errors.Wrapf(err, "creating %s", target)
	}
	defer f.Close()
	if err := render.NewJSONEncoder(f, true).Encode(parsed); err != nil {
		return errors.Wrapf(err, "writing %s", target)
	}
	a.log.WithField("file", target).Info("wrote parse result")
	return nil
}
