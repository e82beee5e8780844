// Package splitter segments a stream of concatenated debug logs into the
// individual logs it contains.
package splitter

import (
	"strconv"
	"strings"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
)

// EmitFunc receives a completed log and its 1-based sequence number.
type EmitFunc func(log string, seq int)

// Splitter accumulates lines until the next log header arrives. A log is
// emitted synchronously from ProcessLine or Finalize, so only the log being
// assembled is ever buffered.
type Splitter struct {
	emit    EmitFunc
	lines   []string
	started bool
	headers int
}

// New returns a Splitter that hands each completed log to emit.
func New(emit EmitFunc) *Splitter {
	return &Splitter{emit: emit}
}

// ProcessLine feeds one line, without its trailing newline. Lines that
// arrive before the first header are dropped.
func (s *Splitter) ProcessLine(line string) {
	line = strings.TrimSuffix(line, "\r")
	if apexlog.IsHeader(line) {
		s.flush()
		s.headers++
		s.started = true
		s.lines = append(s.lines, line)
		return
	}
	if s.started {
		s.lines = append(s.lines, line)
	}
}

// Finalize emits the log still being assembled, if any.
func (s *Splitter) Finalize() {
	s.flush()
}

// Reset discards the log being assembled and waits for a new header.
// Sequence numbers keep counting from where they left off.
func (s *Splitter) Reset() {
	s.lines = nil
	s.started = false
}

// Count reports how many headers have been seen.
func (s *Splitter) Count() int {
	return s.headers
}

func (s *Splitter) flush() {
	if len(s.lines) == 0 {
		return
	}
	log := strings.Join(s.lines, "\n")
	s.lines = nil
	if s.emit != nil {
		s.emit(log, s.headers)
	}
}

// Split runs text through a fresh Splitter and returns every log in it.
func Split(text string) []string {
	var logs []string
	s := New(func(log string, _ int) {
		logs = append(logs, log)
	})
	for _, line := range strings.Split(text, "\n") {
		s.ProcessLine(line)
	}
	s.Finalize()
	return logs
}

// Name labels the seq-th log split out of source, as in "stream.log#2".
func Name(source string, seq int) string {
	return source + "#" + strconv.Itoa(seq)
}
