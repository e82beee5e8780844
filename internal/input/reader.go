// Package input reads debug log text from files, stdin and pods.
package input

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Stdin is the path that selects standard input.
	Stdin = "-"

	// DefaultMaxLineSize bounds a single line. Debug logs carry whole
	// request bodies and heap dumps on one line, so this is generous.
	DefaultMaxLineSize = 16 * 1024 * 1024
)

// ErrNoInput is returned when no files, piped stdin or pod were given.
var ErrNoInput = errors.New("no input: pass a file, pipe a log on stdin or name a pod")

// Reader opens debug log sources. Paths ending in .gz are decompressed and
// "-" reads from Stdin.
type Reader struct {
	Stdin       io.Reader
	MaxLineSize int
}

// NewReader returns a Reader bound to the process's standard input.
func NewReader() *Reader {
	return &Reader{
		Stdin:       os.Stdin,
		MaxLineSize: DefaultMaxLineSize,
	}
}

// ReadFile returns the full text of path.
func (r *Reader) ReadFile(path string) (string, error) {
	rc, err := r.open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var sb strings.Builder
	if _, err := io.Copy(&sb, rc); err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return sb.String(), nil
}

// Lines calls fn for every line of path, without line terminators. It stops
// early when ctx is cancelled.
func (r *Reader) Lines(ctx context.Context, path string, fn func(line string)) error {
	rc, err := r.open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	limit := r.MaxLineSize
	if limit <= 0 {
		limit = DefaultMaxLineSize
	}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), limit)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	return errors.Wrapf(scanner.Err(), "scanning %s", Name(path))
}

func (r *Reader) open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		if r.Stdin == nil {
			return nil, ErrNoInput
		}
		return io.NopCloser(r.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}

	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "decompressing %s", path)
	}
	return &gzipFile{Reader: gz, file: file}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// StdinPiped reports whether standard input is a pipe or file rather than
// a terminal.
func StdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

// Name returns the display name for path.
func Name(path string) string {
	if path == Stdin {
		return "stdin"
	}
	return path
}
