package parser

import (
	"context"
)

// Parser inspects a document before it is sent for processing.
type Parser interface {
	Inspect(ctx context.Context, data []byte) (*DocumentInfo, error)
	SupportedTypes() []string
}

type DocumentInfo struct {
	Pages    int
	Metadata map[string]string
}
