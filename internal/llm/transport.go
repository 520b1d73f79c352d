package llm

import (
	"context"
	"net/http"
	"strconv"

	"github.com/lexiqai/doc-narrator/internal/observability"
)

// RequestMeta carries per-request details that are sent as HTTP headers
type RequestMeta struct {
	RunID string
	Page  int // 1-indexed, zero when unknown
}

type requestMetaKey struct{}

// WithRequestMeta merges meta into any meta already on ctx. Zero values do
// not overwrite existing ones.
func WithRequestMeta(ctx context.Context, add RequestMeta) context.Context {
	cur := RequestMetaFromContext(ctx)
	if add.RunID != "" {
		cur.RunID = add.RunID
	}
	if add.Page != 0 {
		cur.Page = add.Page
	}
	return context.WithValue(ctx, requestMetaKey{}, cur)
}

// RequestMetaFromContext returns the meta stored on ctx, if any
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}

// headerTransport tags outgoing model requests so gateways and proxies can
// attribute them to a run and page
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	meta := RequestMetaFromContext(req.Context())
	if req.Header.Get("X-Title") == "" {
		req.Header.Set("X-Title", observability.ServiceName)
	}
	if req.Header.Get("X-Narration-Run") == "" && meta.RunID != "" {
		req.Header.Set("X-Narration-Run", meta.RunID)
	}
	if req.Header.Get("X-Narration-Page") == "" && meta.Page != 0 {
		req.Header.Set("X-Narration-Page", strconv.Itoa(meta.Page))
	}

	return base.RoundTrip(req)
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &headerTransport{base: http.DefaultTransport},
	}
}
