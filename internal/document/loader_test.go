package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askpdf/internal/domain"
)

func writeFiles(t *testing.T, dir string, files map[string]int) {
	t.Helper()
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
	}
}

func TestPathsExpandsGlobsAndFiltersPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]int{"b.pdf": 1, "a.PDF": 1, "notes.txt": 1})

	l := NewLoader(0)
	paths, err := l.Paths([]string{filepath.Join(dir, "*"), filepath.Join(dir, "b.pdf")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.pdf")}, paths)
}

func TestPathsWithoutPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]int{"notes.txt": 1})
	_, err := NewLoader(0).Paths([]string{filepath.Join(dir, "*")})
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]int{"doc.pdf": 10})
	docs, err := NewLoader(0).Load([]string{filepath.Join(dir, "doc.pdf")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc.pdf", docs[0].Name)
	assert.Equal(t, int64(10), docs[0].Size())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(0).Load([]string{filepath.Join(t.TempDir(), "gone.pdf")})
	var readErr *domain.DocumentReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "gone.pdf", readErr.Document)
}

func TestLoadRejectsLargeFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]int{"big.pdf": 1<<20 + 1})
	_, err := NewLoader(1).Load([]string{filepath.Join(dir, "big.pdf")})
	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(1<<20), tooLarge.Limit)
	assert.Equal(t, domain.CategoryDocument, domain.Categorize(err))
}
