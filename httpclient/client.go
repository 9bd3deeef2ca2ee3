package httpclient

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/rurl/cookiejar"
	"github.com/gaborage/rurl/logger"
	rurltrace "github.com/gaborage/rurl/trace"
)

const (
	headerCookie      = "Cookie"
	headerContentType = "Content-Type"
	formContentType   = "application/x-www-form-urlencoded"

	headerDirPerm  = 0o777
	headerFilePerm = 0o666
)

var errNilRequest = errors.New("request cannot be nil")

// client implements the Client interface
type client struct {
	mu sync.Mutex

	log       logger.Logger
	transport Transport
	fs        afero.Fs
	store     *cookiejar.Store

	cookieFile    string
	cookieJarFile string
	headerFile    string

	options         *Options
	expiresOffset   time.Duration
	limiter         *rate.Limiter
	requestIDHeader string
	onFinished      FinishedHandler
	onError         ErrorHandler
	now             func() time.Time
	tel             *telemetry
	stateHook       func(State)

	callCount int64
}

// NewClient creates a client with default configuration and no cookie persistence.
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	log             logger.Logger
	options         *Options
	cookieDir       string
	cookieFile      string
	cookieJarFile   string
	headerFile      string
	fs              afero.Fs
	transport       Transport
	expiresOffset   time.Duration
	limiter         *rate.Limiter
	requestIDHeader string
	onFinished      FinishedHandler
	onError         ErrorHandler
	now             func() time.Time
	tracerProvider  trace.TracerProvider
	meterProvider   metric.MeterProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		log:             log,
		options:         &Options{Header: map[string]string{}},
		expiresOffset:   cookiejar.DefaultExpiresOffset,
		requestIDHeader: rurltrace.HeaderXRequestID,
	}
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.options.Timeout = timeout
	return b
}

// WithMaxRequest sets how many extra attempts follow a timed-out one
func (b *Builder) WithMaxRequest(n int) *Builder {
	b.options.MaxRequest = Int(n)
	return b
}

// WithInsecureSkipVerify disables TLS certificate verification for every request
func (b *Builder) WithInsecureSkipVerify(skip bool) *Builder {
	b.options.InsecureSkipVerify = Bool(skip)
	return b
}

// WithDefaultHeader adds a header sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.options = b.options.Merge(&Options{Header: map[string]string{key: value}})
	return b
}

// WithOptions merges opts into the persistent option layer
func (b *Builder) WithOptions(opts *Options) *Builder {
	b.options = b.options.Merge(opts)
	return b
}

// WithCookieDir enables the per-origin cookie cache under dir
func (b *Builder) WithCookieDir(dir string) *Builder {
	b.cookieDir = dir
	return b
}

// WithCookieFile adds a Netscape cookie file as a read-only cookie source
func (b *Builder) WithCookieFile(path string) *Builder {
	b.cookieFile = path
	return b
}

// WithCookieJarFile writes the origin's cookies in Netscape format after every call
func (b *Builder) WithCookieJarFile(path string) *Builder {
	b.cookieJarFile = path
	return b
}

// WithResponseHeaderFile writes the raw response header lines of each call to path
func (b *Builder) WithResponseHeaderFile(path string) *Builder {
	b.headerFile = path
	return b
}

// WithFs sets the filesystem used for cookie and header files
func (b *Builder) WithFs(fsys afero.Fs) *Builder {
	b.fs = fsys
	return b
}

// WithTransport replaces the net/http transport
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithExpiresOffset sets the offset subtracted from cookie expiry times
func (b *Builder) WithExpiresOffset(offset time.Duration) *Builder {
	b.expiresOffset = offset
	return b
}

// WithRateLimit paces attempts. A non-positive limit disables pacing.
func (b *Builder) WithRateLimit(limit rate.Limit, burst int) *Builder {
	if limit <= 0 {
		b.limiter = nil
		return b
	}
	if burst < 1 {
		burst = 1
	}
	b.limiter = rate.NewLimiter(limit, burst)
	return b
}

// WithRequestIDHeader sets the correlation header name
func (b *Builder) WithRequestIDHeader(name string) *Builder {
	if name != "" {
		b.requestIDHeader = name
	}
	return b
}

// OnFinished registers the success handler
func (b *Builder) OnFinished(h FinishedHandler) *Builder {
	b.onFinished = h
	return b
}

// OnError registers the failure handler
func (b *Builder) OnError(h ErrorHandler) *Builder {
	b.onError = h
	return b
}

// WithClock sets the time source used for cookie expiry
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithTracerProvider sets the tracer provider; the global one is used otherwise
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider sets the meter provider; the global one is used otherwise
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	fsys := b.fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	var store *cookiejar.Store
	if b.cookieDir != "" {
		store = cookiejar.NewStore(fsys, b.cookieDir, b.log)
	}
	transport := b.transport
	if transport == nil {
		transport = NewNetTransport()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	return &client{
		log:             b.log,
		transport:       transport,
		fs:              fsys,
		store:           store,
		cookieFile:      b.cookieFile,
		cookieJarFile:   b.cookieJarFile,
		headerFile:      b.headerFile,
		options:         b.options.Clone(),
		expiresOffset:   b.expiresOffset,
		limiter:         b.limiter,
		requestIDHeader: b.requestIDHeader,
		onFinished:      b.onFinished,
		onError:         b.onError,
		now:             now,
		tel:             newTelemetry(b.tracerProvider, b.meterProvider),
	}
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Do performs a request with the specified method. Params go into the URL for
// GET and HEAD and become a form-encoded body otherwise unless Body is set.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return c.dispatch(ctx, nil, newValidationError(CodeURLMalformed, "request cannot be nil", errNilRequest))
	}
	if method == "" {
		method = nethttp.MethodGet
	}

	rawURL := req.URL
	body := req.Body
	formBody := false
	if method == nethttp.MethodGet || method == nethttp.MethodHead {
		merged, err := MergeParams(req.URL, req.Params)
		if err != nil {
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				reqErr = newValidationError(CodeURLMalformed, "invalid url", err)
			}
			return c.dispatch(ctx, nil, reqErr)
		}
		rawURL = merged
	} else if body == nil && req.Params != nil {
		body = []byte(req.Params.Encode())
		formBody = true
	}

	opts := req.Options.Merge(&Options{Method: method, Header: req.Headers, Body: body})
	if formBody {
		if _, ok := opts.Header[headerContentType]; !ok {
			opts.Header[headerContentType] = formContentType
		}
	}
	return c.Exec(ctx, rawURL, opts)
}

// Exec performs one logical request, retrying timed-out attempts.
// Handlers run after the call completes, outside the client's lock.
func (c *client) Exec(ctx context.Context, rawURL string, opts *Options) (*Response, error) {
	resp, reqErr := c.execute(ctx, rawURL, opts)
	return c.dispatch(ctx, resp, reqErr)
}

func (c *client) dispatch(ctx context.Context, resp *Response, reqErr *RequestError) (*Response, error) {
	if reqErr != nil {
		if c.onError != nil {
			c.onError(ctx, reqErr)
		}
		return resp, reqErr
	}
	if c.onFinished != nil {
		c.onFinished(ctx, resp)
	}
	return resp, nil
}

// call is the immutable per-call context built before the first attempt.
type call struct {
	url         *url.URL
	redacted    string
	origin      cookiejar.Origin
	req         *TransportRequest
	capture     *headerCapture
	headerFile  afero.File
	requestID   string
	cookiesSent int
}

func (cl *call) close() {
	if cl.headerFile != nil {
		_ = cl.headerFile.Close()
	}
}

func (c *client) execute(ctx context.Context, rawURL string, opts *Options) (*Response, *RequestError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	merged := DefaultOptions().Merge(c.options, opts)

	ex := newExecution(c.log, c.stateHook)
	ex.transition(StateBuildingRequest)

	cl, reqErr := c.prepare(ctx, rawURL, merged)
	if reqErr != nil {
		ex.transition(StateFailed)
		c.log.Warn().Err(reqErr).Str("method", merged.Method).Msg("Request rejected before sending")
		return nil, reqErr
	}
	defer cl.close()

	ctx, span := c.tel.start(ctx, merged.Method, cl.redacted, cl.url.Hostname())
	span.SetAttributes(attrCookies.Int(cl.cookiesSent))
	c.tel.inject(ctx, propagation.HeaderCarrier(cl.req.Header))
	c.logRequest(cl)

	tresp, attempts, err := c.attempt(ctx, ex, cl, deref(merged.MaxRequest))
	c.writeJarFile(cl)

	var resp *Response
	if err != nil {
		reqErr = &RequestError{Code: CodeOf(err), Message: err.Error(), Attempts: attempts, Err: err}
	} else {
		resp = &Response{
			URL:        cl.url.String(),
			StatusCode: tresp.StatusCode,
			Proto:      tresp.Proto,
			Body:       tresp.Body,
			Headers:    tresp.Header,
			RequestID:  cl.requestID,
			Stats: Stats{
				ElapsedTime:   time.Since(start),
				CallCount:     callCount,
				Attempts:      attempts,
				CookiesSent:   cl.cookiesSent,
				CookiesStored: cl.capture.captured,
			},
			CacheErr: cl.capture.cacheErr,
		}
		reqErr = c.finishResponse(resp, merged)
	}

	if reqErr != nil {
		reqErr.CacheErr = cl.capture.cacheErr
		ex.transition(StateFailed)
		c.log.Error().Err(reqErr).Str("url", cl.redacted).Int("attempts", reqErr.Attempts).
			Str("request_id", cl.requestID).Msg("Request failed")
	} else {
		ex.transition(StateSucceeded)
		c.logResponse(cl, resp)
	}
	c.tel.finish(ctx, span, merged.Method, time.Since(start), resp, reqErr)
	return resp, reqErr
}

// finishResponse applies FailOnHTTPError and ReturnBody to a received response.
func (c *client) finishResponse(resp *Response, opts *Options) *RequestError {
	if deref(opts.FailOnHTTPError) && resp.StatusCode >= 400 {
		return &RequestError{
			Code:       CodeHTTPReturnedError,
			Message:    fmt.Sprintf("the requested URL returned error: %d", resp.StatusCode),
			Attempts:   resp.Stats.Attempts,
			StatusCode: resp.StatusCode,
		}
	}
	if deref(opts.ReturnBody) {
		return nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	body := resp.Body
	resp.Body = nil
	if _, err := out.Write(body); err != nil {
		return &RequestError{Code: CodeWriteError, Message: "failed writing body", Attempts: resp.Stats.Attempts, Err: err}
	}
	return nil
}

// prepare resolves the URL, the outgoing headers and cookies and the header capture.
func (c *client) prepare(ctx context.Context, rawURL string, opts *Options) (*call, *RequestError) {
	if rawURL == "" {
		return nil, newValidationError(CodeURLMalformed, "url cannot be empty", nil)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, newValidationError(CodeURLMalformed, "invalid url", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return nil, newValidationError(CodeURLMalformed, "url has no scheme", nil)
	default:
		return nil, newValidationError(CodeUnsupportedProtocol, fmt.Sprintf("protocol %q not supported", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, newValidationError(CodeURLMalformed, "url has no host", nil)
	}

	cl := &call{url: u, redacted: u.Redacted(), origin: cookiejar.OriginOf(u)}

	header := nethttp.Header{}
	for k, v := range opts.Header {
		header.Set(k, v)
	}
	cl.requestID = rurltrace.Inject(ctx, header, c.requestIDHeader)

	var jar *cookiejar.Jar
	if c.store != nil {
		jar = c.store.Load(cl.origin)
	} else if c.cookieJarFile != "" {
		jar = cookiejar.NewJar()
	}

	if header.Get(headerCookie) == "" {
		if send := c.outgoingCookies(cl.origin, u.Path, jar); len(send) > 0 {
			header.Set(headerCookie, cookiejar.HeaderValue(send))
			cl.cookiesSent = len(send)
		}
	}

	cl.capture = &headerCapture{
		origin:      cl.origin,
		requestPath: u.Path,
		store:       c.store,
		jar:         jar,
		log:         c.log,
	}
	if c.headerFile != "" {
		f, err := c.openHeaderFile()
		if err != nil {
			c.log.Warn().Err(err).Str("file", c.headerFile).Msg("Response header file unavailable")
			cl.capture.cacheErr = err
		} else {
			cl.headerFile = f
			cl.capture.headerOut = f
		}
	}

	cl.req = &TransportRequest{
		Method:             opts.Method,
		URL:                u,
		Header:             header,
		Body:               opts.Body,
		Timeout:            opts.Timeout,
		InsecureSkipVerify: deref(opts.InsecureSkipVerify),
	}
	if cl.capture.jar != nil || cl.capture.headerOut != nil {
		cl.req.HeaderFunc = cl.capture.onHeader
	}
	return cl, nil
}

// outgoingCookies selects the jar cookies valid for path followed by the
// cookie-file entries whose names the jar does not already supply.
func (c *client) outgoingCookies(origin cookiejar.Origin, path string, jar *cookiejar.Jar) []cookiejar.Cookie {
	now := c.now()
	var send []cookiejar.Cookie
	if c.store != nil {
		send = cookiejar.Filter(jar, path, now, c.expiresOffset)
	}
	if c.cookieFile == "" {
		return send
	}

	fromFile, err := cookiejar.ReadNetscape(c.fs, c.cookieFile, origin, now)
	if err != nil {
		c.log.Warn().Err(err).Str("file", c.cookieFile).Msg("Cookie file unreadable")
		return send
	}
	seen := make(map[string]struct{}, len(send))
	for _, ck := range send {
		seen[ck.Name] = struct{}{}
	}
	for _, ck := range fromFile {
		if _, dup := seen[ck.Name]; dup {
			continue
		}
		if cookiejar.IsSendable(ck, path, now, c.expiresOffset) {
			seen[ck.Name] = struct{}{}
			send = append(send, ck)
		}
	}
	return send
}

// attempt runs the transport until it succeeds, fails with anything but a
// timeout, or maxRequest extra attempts have been made.
func (c *client) attempt(ctx context.Context, ex *execution, cl *call, maxRequest int) (*TransportResponse, int, error) {
	attempts := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				code := CodeAbortedByCallback
				if ctx.Err() != nil {
					code = ClassifyError(ctx.Err())
				}
				return nil, attempts, NewTransportError(code, err)
			}
		}

		attempts++
		ex.transition(StateInFlight)
		resp, err := c.transport.Execute(ctx, cl.req)
		c.tel.recordAttempt(ctx, cl.req.Method, ClassifyError(err))
		if err == nil {
			return resp, attempts, nil
		}
		if !IsTimeout(err) || attempts > maxRequest || ctx.Err() != nil {
			return nil, attempts, err
		}

		ex.transition(StateRetrying)
		c.log.Warn().Err(err).Str("url", cl.redacted).Int("attempt", attempts).Int("max_request", maxRequest).
			Msg("Request timed out, retrying")
	}
}

func (c *client) writeJarFile(cl *call) {
	if c.cookieJarFile == "" || cl.capture.jar == nil {
		return
	}
	if err := cookiejar.WriteNetscape(c.fs, c.cookieJarFile, cl.origin, cl.capture.jar); err != nil {
		c.log.Warn().Err(err).Str("file", c.cookieJarFile).Msg("Failed to write cookie jar file")
		if cl.capture.cacheErr == nil {
			cl.capture.cacheErr = err
		}
	}
}

// openHeaderFile truncates the response header file, creating it when needed.
func (c *client) openHeaderFile() (afero.File, error) {
	dir := filepath.Dir(c.headerFile)
	if err := c.fs.MkdirAll(dir, headerDirPerm); err != nil {
		return nil, &cookiejar.CacheError{Op: "mkdir", Path: dir, Err: err}
	}
	f, err := c.fs.OpenFile(c.headerFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, headerFilePerm)
	if err != nil {
		return nil, &cookiejar.CacheError{Op: "create", Path: c.headerFile, Err: err}
	}
	return f, nil
}

// logRequest logs the outgoing request
func (c *client) logRequest(cl *call) {
	c.log.Info().
		Str("direction", "outbound").
		Str("method", cl.req.Method).
		Str("url", cl.redacted).
		Str("request_id", cl.requestID).
		Int("cookies_sent", cl.cookiesSent).
		Msg("HTTP client request")
}

// logResponse logs the incoming response
func (c *client) logResponse(cl *call, resp *Response) {
	c.log.Info().
		Str("direction", "inbound").
		Str("url", cl.redacted).
		Str("request_id", cl.requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("attempts", resp.Stats.Attempts).
		Msg("HTTP client response")
}
