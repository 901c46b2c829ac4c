package scanner

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDocuments(t *testing.T) {
	fsys := memfs.New()
	for _, name := range []string{"b.pdf", "a.PDF", "c.Pdf", "notes.txt", "pdf", "archive.pdf.gz"} {
		require.NoError(t, util.WriteFile(fsys, "in/"+name, []byte("%PDF-1.4"), 0o644))
	}
	require.NoError(t, fsys.MkdirAll("in/nested.pdf", 0o755))
	require.NoError(t, util.WriteFile(fsys, "in/sub/d.pdf", []byte("x"), 0o644))

	files, err := ListDocuments(fsys, "in", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"in/a.PDF", "in/b.pdf", "in/c.Pdf"}, files)
}

func TestListDocuments_Empty(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, fsys.MkdirAll("empty", 0o755))

	files, err := ListDocuments(fsys, "empty", ".pdf")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListDocuments_Errors(t *testing.T) {
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "file.pdf", []byte("x"), 0o644))

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListDocuments(fsys, "missing", ".pdf")
		var dirErr *DirectoryError
		require.True(t, errors.As(err, &dirErr))
		assert.Equal(t, "missing", dirErr.Path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("not a directory", func(t *testing.T) {
		_, err := ListDocuments(fsys, "file.pdf", ".pdf")
		var dirErr *DirectoryError
		require.ErrorAs(t, err, &dirErr)
		assert.Contains(t, err.Error(), "must be a directory")
	})
}
