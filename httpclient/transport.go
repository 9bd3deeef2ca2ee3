package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"slices"
	"time"
)

// HeaderFunc receives every response header line, CRLF included, starting with
// the status line and ending with the empty line. It must return len(line);
// any other value aborts the attempt with CodeWriteError.
type HeaderFunc func(line string) int

// TransportRequest is one attempt handed to a Transport.
type TransportRequest struct {
	Method             string
	URL                *url.URL
	Header             nethttp.Header
	Body               []byte
	Timeout            time.Duration
	InsecureSkipVerify bool
	HeaderFunc         HeaderFunc
}

// TransportResponse is the outcome of a successful attempt.
type TransportResponse struct {
	StatusCode int
	Proto      string
	Header     nethttp.Header
	Body       []byte
}

// Transport performs a single attempt. Failures should carry an ErrorCode,
// either through *TransportError or by being classifiable with ClassifyError.
type Transport interface {
	Execute(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

func (f TransportFunc) Execute(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

var errHeaderRejected = errors.New("header callback did not consume the line")

// NetTransport is the net/http backed Transport. Redirects are not followed,
// responses are not transparently decompressed and every attempt uses a new connection.
type NetTransport struct {
	// Proxy selects the proxy per request; nil uses the environment.
	Proxy func(*nethttp.Request) (*url.URL, error)
}

// NewNetTransport returns a NetTransport using proxies from the environment.
func NewNetTransport() *NetTransport {
	return &NetTransport{Proxy: nethttp.ProxyFromEnvironment}
}

func (t *NetTransport) Execute(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, NewTransportError(CodeURLMalformed, err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
	}

	httpClient := &nethttp.Client{
		Transport: t.roundTripper(req.InsecureSkipVerify),
		CheckRedirect: func(*nethttp.Request, []*nethttp.Request) error {
			return nethttp.ErrUseLastResponse
		},
	}
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransportError(CodeOK, err)
	}
	defer httpResp.Body.Close()

	if req.HeaderFunc != nil {
		if err := emitHeaders(httpResp, req.HeaderFunc); err != nil {
			return nil, err
		}
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewTransportError(CodeOK, err)
	}

	return &TransportResponse{
		StatusCode: httpResp.StatusCode,
		Proto:      httpResp.Proto,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

func (t *NetTransport) roundTripper(insecureSkipVerify bool) *nethttp.Transport {
	proxy := t.Proxy
	if proxy == nil {
		proxy = nethttp.ProxyFromEnvironment
	}
	return &nethttp.Transport{
		Proxy:              proxy,
		DisableKeepAlives:  true,
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // opt-in per request
		},
	}
}

// emitHeaders replays the response head line by line in wire form.
// Header names are sorted; multiple values yield one line each.
func emitHeaders(resp *nethttp.Response, fn HeaderFunc) error {
	lines := make([]string, 0, len(resp.Header)+2)
	lines = append(lines, fmt.Sprintf("%s %s\r\n", resp.Proto, resp.Status))

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			lines = append(lines, name+": "+v+"\r\n")
		}
	}
	lines = append(lines, "\r\n")

	for _, line := range lines {
		if n := fn(line); n != len(line) {
			return NewTransportError(CodeWriteError, errHeaderRejected)
		}
	}
	return nil
}
