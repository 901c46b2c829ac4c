package grobid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/kermitt2/grobid-client-go/internal/parser"
	"github.com/kermitt2/grobid-client-go/internal/types"
)

const (
	fieldInput                = "input"
	fieldConsolidateHeader    = "consolidateHeader"
	fieldConsolidateCitations = "consolidateCitations"
)

type Config struct {
	// URL is the full endpoint, base URL plus action path.
	URL     string
	Timeout time.Duration
	// Preflight, when set, checks each document locally before uploading it.
	Preflight *parser.Registry
}

type Client struct {
	url        string
	httpClient *http.Client
	fsys       billy.Filesystem
	preflight  *parser.Registry
}

func NewClient(fsys billy.Filesystem, config *Config) *Client {
	return &Client{
		url:        config.URL,
		httpClient: &http.Client{Timeout: config.Timeout},
		fsys:       fsys,
		preflight:  config.Preflight,
	}
}

// Process uploads one document and classifies the response. A 200 body is
// read in full before Success is returned.
func (c *Client) Process(ctx context.Context, item *types.WorkItem) types.Outcome {
	data, err := util.ReadFile(c.fsys, item.SourcePath)
	if err != nil {
		return types.Fatal(fmt.Errorf("failed to read %s: %w", item.SourcePath, err))
	}

	if c.preflight != nil {
		info, err := c.preflight.Inspect(ctx, item.SourcePath, data)
		if err != nil {
			return types.Fatal(fmt.Errorf("preflight check failed for %s: %w", item.Name, err))
		}
		log.Printf("🔍 %s: %d pages", item.Name, info.Pages)
	}

	body, contentType, err := buildForm(item.Name, data)
	if err != nil {
		return types.Fatal(fmt.Errorf("failed to build request for %s: %w", item.Name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return types.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Retryable(&TransportError{URL: c.url, Err: err})
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return types.Retryable(&TransportError{URL: c.url, Err: fmt.Errorf("failed to read response body: %w", err)})
		}
		return types.Success(payload)

	case http.StatusServiceUnavailable:
		// all the service threads are in use, the item will be submitted again later
		_, _ = io.Copy(io.Discard, resp.Body)
		return types.Retryable(ErrServiceBusy)

	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return types.Fatal(&ServiceError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
}

func buildForm(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(fieldInput, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField(fieldConsolidateHeader, "1"); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField(fieldConsolidateCitations, "0"); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}
