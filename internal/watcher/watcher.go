// Package watcher re-parses debug logs as they are written.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 250 * time.Millisecond

// Watcher monitors directory trees for debug logs being created or written.
type Watcher struct {
	fsw      *fsnotify.Watcher
	roots    []string
	pattern  string
	log      logrus.FieldLogger
	Debounce time.Duration
}

// New watches every directory below roots. Files are reported when their
// path relative to a root matches pattern, e.g. "**/*.log".
func New(roots []string, pattern string, log logrus.FieldLogger) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid watch pattern %q", pattern)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	w := &Watcher{fsw: fsw, pattern: pattern, log: log, Debounce: DefaultDebounce}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "resolving %s", root)
		}
		if err := w.addTree(abs); err != nil {
			fsw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Roots returns the absolute directories being watched.
func (w *Watcher) Roots() []string {
	return w.roots
}

// Existing lists the files already present that match the pattern.
func (w *Watcher) Existing() ([]string, error) {
	var files []string
	for _, root := range w.roots {
		matches, err := doublestar.Glob(os.DirFS(root), w.pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", root)
		}
		for _, m := range matches {
			files = append(files, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run calls fn with the path of each matching file once writes to it settle.
// It blocks until ctx is cancelled and closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	defer w.fsw.Close()

	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.WithError(err).WithField("dir", ev.Name).Warn("cannot watch new directory")
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !w.Match(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}
			for _, p := range paths {
				fn(p)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		}
	}
}

// Match reports whether path, relative to one of the roots, matches the
// watch pattern.
func (w *Watcher) Match(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if ok, _ := doublestar.PathMatch(w.pattern, rel); ok {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walking %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "watching %s", path)
		}
		w.log.WithField("dir", path).Debug("watching")
		return nil
	})
}
