// Package fetch retrieves WKD resources over HTTP.
//
// Fetcher is the port used by the lookup pipeline; Client is the production
// adapter. Transport failures are returned as *TransportError, classified into
// the Kind taxonomy so callers never need to inspect net or tls errors.
package fetch

import (
	"context"
	"net/http"
)

//go:generate mockgen -source=fetch.go -destination=mocks/mocks.go -package=mocks Fetcher

// Request is a single HTTP request issued by the pipeline.
type Request struct {
	Method string
	URL    string
}

// Get builds a GET request for url.
func Get(url string) Request {
	return Request{Method: http.MethodGet, URL: url}
}

// Head builds a HEAD request for url.
func Head(url string) Request {
	return Request{Method: http.MethodHead, URL: url}
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher performs one request without retrying. Implementations return a
// *TransportError when no HTTP response was obtained.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}
