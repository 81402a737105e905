package worker

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// Request is the subset of an intercepted fetch the runtime cares about.
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Response is a materialized fetch response, storable in a Cache.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs the actual network request for an intercepted fetch.
type Fetcher interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFetcher is the default Fetcher, backed by net/http.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Do(ctx context.Context, req *Request) (*Response, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = vs
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// handleFetch implements the network-first strategy. Only GET requests are
// intercepted; everything else goes straight to the network. A successful
// network response is returned unmodified and never implicitly cached. On
// network failure the versioned cache is consulted, and if it has no match
// the original network error propagates to the requester.
func (r *Runtime) handleFetch(ctx context.Context, req *Request) (*Response, error) {
	if req.Method != http.MethodGet {
		return r.fetcher.Do(ctx, req)
	}

	resp, err := r.fetcher.Do(ctx, req)
	if err == nil {
		return resp, nil
	}

	if cached, ok := r.caches.Open(r.CacheName()).Match(req.URL); ok {
		r.log.Debugw("serving cached response after network failure", "url", req.URL)
		return cloneResponse(cached), nil
	}
	return nil, err
}

func cloneResponse(resp *Response) *Response {
	clone := &Response{StatusCode: resp.StatusCode, Body: bytes.Clone(resp.Body)}
	if resp.Header != nil {
		clone.Header = resp.Header.Clone()
	}
	return clone
}
