package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Registry maps file extensions and content types to the parser that
// understands them.
type Registry struct {
	byKey map[string]Parser
}

// NewRegistry registers parsers, or only the PDF parser when none are given.
func NewRegistry(parsers ...Parser) *Registry {
	if len(parsers) == 0 {
		parsers = []Parser{NewPDFParser()}
	}

	r := &Registry{byKey: make(map[string]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Parser) {
	for _, key := range p.SupportedTypes() {
		r.byKey[strings.ToLower(key)] = p
	}
}

// GetParser looks name up by extension first, then as a content type.
func (r *Registry) GetParser(name string) (Parser, error) {
	lower := strings.ToLower(name)
	for _, key := range []string{filepath.Ext(lower), lower} {
		if p, ok := r.byKey[key]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported file type: %s", name)
}

func (r *Registry) Inspect(ctx context.Context, name string, data []byte) (*DocumentInfo, error) {
	p, err := r.GetParser(name)
	if err != nil {
		return nil, err
	}
	return p.Inspect(ctx, data)
}
