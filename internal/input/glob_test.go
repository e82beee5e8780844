package input

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.log", sample)
	b := writeFile(t, dir, "nested/deep/b.log", sample)
	writeFile(t, dir, "notes.txt", "not a log")

	files, err := ExpandPatterns([]string{filepath.Join(dir, "**", "*.log"), a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestExpandPatternsPassesLiteralsThrough(t *testing.T) {
	files, err := ExpandPatterns([]string{"-", "does-not-exist.log", "-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-", "does-not-exist.log"}, files)
}

func TestExpandPatternsNoMatches(t *testing.T) {
	files, err := ExpandPatterns([]string{filepath.Join(t.TempDir(), "*.log")})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExpandPatternsBadPattern(t *testing.T) {
	_, err := ExpandPatterns([]string{"[unterminated"})
	assert.Error(t, err)
}
