package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// ResultExtension replaces the source extension in output names.
const ResultExtension = ".tei.xml"

// ResultWriter persists the service response for one document and returns
// where it was written.
type ResultWriter interface {
	Write(ctx context.Context, name string, body []byte) (string, error)
}

// WriteError is an I/O failure while persisting a result.
type WriteError struct {
	Location string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Location, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ResultName maps a source file name to its output name:
// "report.pdf" becomes "report.tei.xml".
func ResultName(source string) string {
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ResultExtension
}
