package httpclient

import (
	"io"
	nethttp "net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRequest is the number of extra attempts made after timeouts.
	DefaultMaxRequest = 3
)

// Options are the per-request settings. They are merged in three layers:
// DefaultOptions, then the client's persistent options, then per-call options.
// A later layer overrides an earlier one field by field; nil and zero fields
// leave the earlier value in place, and headers merge by canonical name.
type Options struct {
	Method  string
	Header  map[string]string
	Body    []byte
	Timeout time.Duration

	// MaxRequest bounds the extra attempts after timed-out ones.
	MaxRequest *int
	// ReturnBody keeps the body on the Response. When false the body is
	// streamed to Output instead.
	ReturnBody *bool
	Output     io.Writer
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify *bool
	// FailOnHTTPError turns status codes >= 400 into CodeHTTPReturnedError.
	FailOnHTTPError *bool
}

// DefaultOptions returns the built-in option layer.
func DefaultOptions() *Options {
	return &Options{
		Method:             nethttp.MethodGet,
		Header:             map[string]string{},
		Timeout:            DefaultTimeout,
		MaxRequest:         Int(DefaultMaxRequest),
		ReturnBody:         Bool(true),
		InsecureSkipVerify: Bool(false),
		FailOnHTTPError:    Bool(false),
	}
}

// Merge returns a new Options with layers applied over o in order.
// o and every layer may be nil; none of them is modified.
func (o *Options) Merge(layers ...*Options) *Options {
	out := &Options{Header: map[string]string{}}
	for _, l := range append([]*Options{o}, layers...) {
		if l == nil {
			continue
		}
		if l.Method != "" {
			out.Method = l.Method
		}
		for k, v := range l.Header {
			out.Header[nethttp.CanonicalHeaderKey(k)] = v
		}
		if l.Body != nil {
			out.Body = l.Body
		}
		if l.Timeout > 0 {
			out.Timeout = l.Timeout
		}
		if l.MaxRequest != nil {
			out.MaxRequest = Int(*l.MaxRequest)
		}
		if l.ReturnBody != nil {
			out.ReturnBody = Bool(*l.ReturnBody)
		}
		if l.Output != nil {
			out.Output = l.Output
		}
		if l.InsecureSkipVerify != nil {
			out.InsecureSkipVerify = Bool(*l.InsecureSkipVerify)
		}
		if l.FailOnHTTPError != nil {
			out.FailOnHTTPError = Bool(*l.FailOnHTTPError)
		}
	}
	return out
}

// Clone returns a deep copy of o.
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	return o.Merge()
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
