package grobid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kermitt2/grobid-client-go/internal/parser"
	"github.com/kermitt2/grobid-client-go/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type received struct {
	filename             string
	content              string
	consolidateHeader    string
	consolidateCitations string
}

// fakeService mimics the GROBID API: it records the form it receives and
// answers with the given status and body.
func fakeService(t *testing.T, status int, body string, got chan<- received) *httptest.Server {
	t.Helper()

	g := gin.New()
	g.POST("/api/processFulltextDocument", func(c *gin.Context) {
		if got != nil {
			fh, err := c.FormFile("input")
			if err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			f, err := fh.Open()
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			data, _ := io.ReadAll(f)
			f.Close()

			got <- received{
				filename:             fh.Filename,
				content:              string(data),
				consolidateHeader:    c.PostForm("consolidateHeader"),
				consolidateCitations: c.PostForm("consolidateCitations"),
			}
		}
		c.Data(status, "application/xml", []byte(body))
	})

	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, timeout time.Duration) (*Client, billy.Filesystem) {
	t.Helper()

	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "in/paper.pdf", []byte("%PDF-1.4 fake"), 0o644))
	return NewClient(fsys, &Config{URL: url, Timeout: timeout}), fsys
}

func TestClient_Success(t *testing.T) {
	forms := make(chan received, 1)
	srv := fakeService(t, http.StatusOK, "<TEI>paper</TEI>", forms)
	client, _ := newTestClient(t, srv.URL+"/api/processFulltextDocument", time.Second)

	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/paper.pdf"))

	require.Equal(t, types.OutcomeSuccess, outcome.Kind, "err: %v", outcome.Err)
	assert.Equal(t, "<TEI>paper</TEI>", string(outcome.Body))

	got := <-forms
	assert.Equal(t, "paper.pdf", got.filename)
	assert.Equal(t, "%PDF-1.4 fake", got.content)
	assert.Equal(t, "1", got.consolidateHeader)
	assert.Equal(t, "0", got.consolidateCitations)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   types.OutcomeKind
		check  func(t *testing.T, err error)
	}{
		{
			name:   "service busy",
			status: http.StatusServiceUnavailable,
			kind:   types.OutcomeRetryable,
			check: func(t *testing.T, err error) {
				assert.True(t, IsServiceBusy(err))
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			kind:   types.OutcomeFatal,
			check: func(t *testing.T, err error) {
				var se *ServiceError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadRequest, se.StatusCode)
			},
		},
		{
			name:   "no content",
			status: http.StatusNoContent,
			kind:   types.OutcomeFatal,
			check: func(t *testing.T, err error) {
				var se *ServiceError
				require.ErrorAs(t, err, &se)
			},
		},
		{
			name:   "internal error",
			status: http.StatusInternalServerError,
			kind:   types.OutcomeFatal,
			check: func(t *testing.T, err error) {
				assert.False(t, IsServiceBusy(err))
				assert.Contains(t, err.Error(), "500")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeService(t, tt.status, "nope", nil)
			client, _ := newTestClient(t, srv.URL+"/api/processFulltextDocument", time.Second)

			outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/paper.pdf"))
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Nil(t, outcome.Body)
			tt.check(t, outcome.Err)
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api/processFulltextDocument"
	srv.Close()

	client, _ := newTestClient(t, url, time.Second)
	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/paper.pdf"))

	assert.Equal(t, types.OutcomeRetryable, outcome.Kind)
	assert.True(t, IsTransport(outcome.Err))
}

func TestClient_Timeout(t *testing.T) {
	g := gin.New()
	g.POST("/api/processFulltextDocument", func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
		c.String(http.StatusOK, "late")
	})
	srv := httptest.NewServer(g)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL+"/api/processFulltextDocument", 20*time.Millisecond)
	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/paper.pdf"))

	assert.Equal(t, types.OutcomeRetryable, outcome.Kind)
	assert.True(t, IsTransport(outcome.Err))
}

func TestClient_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n<TEI>cut")
		_ = buf.Flush()
		_ = conn.Close()
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, time.Second)
	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/paper.pdf"))

	assert.Equal(t, types.OutcomeRetryable, outcome.Kind)
	assert.True(t, IsTransport(outcome.Err))
}

func TestClient_MissingSource(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL, time.Second)
	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/missing.pdf"))

	assert.Equal(t, types.OutcomeFatal, outcome.Kind)
	assert.Equal(t, int32(0), hits.Load())
}

func TestClient_PreflightRejectsNonPDF(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "in/fake.pdf", []byte("not a pdf"), 0o644))
	client := NewClient(fsys, &Config{URL: srv.URL, Timeout: time.Second, Preflight: parser.NewRegistry()})

	outcome := client.Process(context.Background(), types.NewWorkItem("1", "in/fake.pdf"))

	assert.Equal(t, types.OutcomeFatal, outcome.Kind)
	assert.Contains(t, outcome.Err.Error(), "preflight")
	assert.Equal(t, int32(0), hits.Load())
}
