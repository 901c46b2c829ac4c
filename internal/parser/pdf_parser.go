package parser

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

func (p *PDFParser) Inspect(ctx context.Context, data []byte) (info *DocumentInfo, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Check if it's a valid PDF by examining the header
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, fmt.Errorf("not a PDF file: invalid header (got: %q)", data[:min(10, len(data))])
	}

	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	return &DocumentInfo{
		Pages: numPages,
		Metadata: map[string]string{
			"pages":    strconv.Itoa(numPages),
			"fileType": "application/pdf",
		},
	}, nil
}

func (p *PDFParser) SupportedTypes() []string {
	return []string{"application/pdf", ".pdf"}
}
