package storage

import (
	"context"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// FileWriter writes results under a directory of a billy filesystem.
type FileWriter struct {
	fsys billy.Filesystem
	dir  string
}

func NewFileWriter(fsys billy.Filesystem, dir string) *FileWriter {
	return &FileWriter{
		fsys: fsys,
		dir:  dir,
	}
}

// Write creates the output directory tree if needed and replaces any
// existing file with body.
func (w *FileWriter) Write(ctx context.Context, name string, body []byte) (string, error) {
	location := w.fsys.Join(w.dir, ResultName(name))

	if err := ctx.Err(); err != nil {
		return "", &WriteError{Location: location, Err: err}
	}

	if err := w.fsys.MkdirAll(w.dir, 0o755); err != nil {
		return "", &WriteError{Location: location, Err: err}
	}

	if err := util.WriteFile(w.fsys, location, body, os.FileMode(0o644)); err != nil {
		return "", &WriteError{Location: location, Err: err}
	}

	return location, nil
}
