package httpclient

import (
	"context"
	nethttp "net/http"
	"time"
)

// Client executes requests. Calls on one Client are serialised.
type Client interface {
	// Get merges req.Params into the URL and performs a GET request.
	Get(ctx context.Context, req *Request) (*Response, error)
	// Post sends req.Body, or req.Params form-encoded when Body is nil.
	Post(ctx context.Context, req *Request) (*Response, error)
	// Do performs a request with an arbitrary method, encoding the body like Post.
	Do(ctx context.Context, method string, req *Request) (*Response, error)
	// Exec performs a request for rawURL using only the given per-call options.
	Exec(ctx context.Context, rawURL string, opts *Options) (*Response, error)
}

// Request describes one call.
type Request struct {
	URL     string
	Params  Params
	Headers map[string]string
	Body    []byte
	// Options is the per-call option layer. Headers and Body above take precedence over it.
	Options *Options
}

// Response is the success outcome of a call.
type Response struct {
	URL        string
	StatusCode int
	Proto      string
	// Body is nil when the body was streamed to Options.Output.
	Body      []byte
	Headers   nethttp.Header
	RequestID string
	Stats     Stats
	// CacheErr reports a cookie cache or header file failure that did not abort the call.
	CacheErr error
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempts    int
	// CookiesSent counts cookies attached to the request.
	CookiesSent int
	// CookiesStored counts Set-Cookie headers merged into the jar.
	CookiesStored int
}

// FinishedHandler observes successful calls.
type FinishedHandler func(ctx context.Context, resp *Response)

// ErrorHandler observes failed calls.
type ErrorHandler func(ctx context.Context, err *RequestError)
