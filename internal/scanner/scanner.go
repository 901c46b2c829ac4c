package scanner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// DirectoryError is returned when the input directory cannot be enumerated.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("cannot list input directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// ListDocuments returns the regular files of dir whose name ends with suffix,
// compared case-insensitively, sorted by name. Subdirectories are not visited.
func ListDocuments(fsys billy.Filesystem, dir, suffix string) ([]string, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, &DirectoryError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &DirectoryError{Path: dir, Err: fmt.Errorf("input path must be a directory, not a file")}
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, &DirectoryError{Path: dir, Err: err}
	}

	suffix = strings.ToLower(suffix)
	var files []string
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), suffix) {
			continue
		}
		files = append(files, fsys.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}
