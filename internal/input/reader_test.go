package input

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "64.0 APEX_CODE,FINEST\n12:00:00.0 (0)|EXECUTION_STARTED\n12:00:00.0 (5)|EXECUTION_FINISHED\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	r := NewReader()

	plain := writeFile(t, dir, "plain.log", sample)
	text, err := r.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, sample, text)

	compressed := writeGzip(t, dir, "packed.log.gz", sample)
	text, err = r.ReadFile(compressed)
	require.NoError(t, err)
	assert.Equal(t, sample, text)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	r := NewReader()

	_, err := r.ReadFile(filepath.Join(dir, "missing.log"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.log")
	assert.True(t, os.IsNotExist(errors.Cause(err)))

	notGzip := writeFile(t, dir, "fake.log.gz", sample)
	_, err = r.ReadFile(notGzip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompressing")
}

func TestReadStdin(t *testing.T) {
	r := &Reader{Stdin: strings.NewReader(sample)}

	text, err := r.ReadFile(Stdin)
	require.NoError(t, err)
	assert.Equal(t, sample, text)

	empty := &Reader{}
	_, err = empty.ReadFile(Stdin)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestLines(t *testing.T) {
	dir := t.TempDir()
	path := writeGzip(t, dir, "lines.log.gz", strings.ReplaceAll(sample, "\n", "\r\n"))

	var lines []string
	err := NewReader().Lines(context.Background(), path, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "64.0 APEX_CODE,FINEST", lines[0])
	assert.Equal(t, "12:00:00.0 (5)|EXECUTION_FINISHED", lines[2])
}

func TestLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Reader{Stdin: strings.NewReader(sample)}
	calls := 0
	err := r.Lines(ctx, Stdin, func(string) { calls++ })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestLinesTooLong(t *testing.T) {
	r := &Reader{Stdin: strings.NewReader(strings.Repeat("x", 200*1024)), MaxLineSize: 100 * 1024}

	err := r.Lines(context.Background(), Stdin, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning stdin")
}

func TestName(t *testing.T) {
	assert.Equal(t, "stdin", Name(Stdin))
	assert.Equal(t, "a.log", Name("a.log"))
}
