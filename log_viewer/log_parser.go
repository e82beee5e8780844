// log_viewer/log_parser.go

package main

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
	"github.com/jamestexas/apex-log-parsin/internal/input"
	"github.com/jamestexas/apex-log-parsin/internal/splitter"
)

// document is one debug log's text and the name it is reported under.
type document struct {
	name string
	text string
}

// inputPaths resolves command arguments to paths. With no arguments it
// falls back to piped stdin. It returns no paths and no error when a pod
// is configured instead.
func (a *app) inputPaths(args []string) ([]string, error) {
	if len(args) > 0 {
		paths, err := input.ExpandPatterns(args)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, input.ErrNoInput
		}
		return paths, nil
	}
	if a.stdinPiped() {
		a.log.Debug("stdin detected")
		return []string{input.Stdin}, nil
	}
	if a.podSource().Valid() {
		return nil, nil
	}
	return nil, input.ErrNoInput
}

// loadDocuments reads every input named by args. With split set, each
// input is run through the splitter and every log found in it becomes its
// own document named "<input>#<seq>".
func (a *app) loadDocuments(ctx context.Context, args []string, split bool) ([]document, error) {
	paths, err := a.inputPaths(args)
	if err != nil {
		return nil, err
	}

	if paths == nil {
		doc, err := a.fetchPodLog(ctx)
		if err != nil {
			return nil, err
		}
		if !split {
			return []document{doc}, nil
		}
		var docs []document
		for i, text := range splitter.Split(doc.text) {
			docs = append(docs, document{name: splitter.Name(doc.name, i+1), text: text})
		}
		return docs, nil
	}

	var docs []document
	for _, path := range paths {
		name := input.Name(path)
		if !split {
			text, err := a.reader.ReadFile(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, document{name: name, text: text})
			continue
		}

		sp := splitter.New(func(text string, seq int) {
			docs = append(docs, document{name: splitter.Name(name, seq), text: text})
		})
		if err := a.reader.Lines(ctx, path, sp.ProcessLine); err != nil {
			return nil, err
		}
		sp.Finalize()
		a.log.WithFields(logrus.Fields{"file": name, "logs": sp.Count()}).Debug("split input")
	}
	return docs, nil
}

// parseDocuments parses each document and reports what the parser had to
// recover from.
func (a *app) parseDocuments(docs []document) []*apexlog.ParsedLog {
	parser := a.cfg.Parser()
	logs := make([]*apexlog.ParsedLog, 0, len(docs))
	for _, doc := range docs {
		parsed := parser.Parse(doc.text, doc.name)
		a.reportAnomalies(parsed)
		logs = append(logs, parsed)
	}
	return logs
}

func (a *app) reportAnomalies(parsed *apexlog.ParsedLog) {
	for _, an := range parsed.Anomalies {
		a.log.WithFields(logrus.Fields{
			"file":  parsed.Meta.Filename,
			"line":  an.Line,
			"event": an.Event,
		}).Warn(an.Reason)
	}
	a.log.WithFields(logrus.Fields{
		"file":     parsed.Meta.Filename,
		"records":  parsed.Stats.Records,
		"skipped":  parsed.Stats.Skipped,
		"unknown":  parsed.Stats.UnknownTags,
		"events":   len(parsed.Events),
		"duration": parsed.Meta.DurationMs,
	}).Debug("parsed log")
}

// loadLogs reads and parses every input named by args.
func (a *app) loadLogs(ctx context.Context, args []string, split bool) ([]*apexlog.ParsedLog, error) {
	docs, err := a.loadDocuments(ctx, args, split)
	if err != nil {
		return nil, err
	}
	return a.parseDocuments(docs), nil
}

// baseName strips directories and log extensions, so "dir/run.log.gz"
// becomes "run".
func baseName(path string) string {
	if path == input.Stdin {
		return "stdin"
	}
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".gz")
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
