package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/rurl/cookiejar"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: CodeOK},
		{name: "canceled", err: context.Canceled, want: CodeAbortedByCallback},
		{name: "deadline", err: fmt.Errorf("wrapped: %w", context.DeadlineExceeded), want: CodeOperationTimedOut},
		{name: "net timeout", err: &url.Error{Op: "Get", URL: "http://x", Err: timeoutNetError{}}, want: CodeOperationTimedOut},
		{name: "dns not found", err: &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, want: CodeCouldntResolveHost},
		{name: "dns timeout", err: &net.DNSError{Err: "timeout", Name: "slow", IsTimeout: true}, want: CodeOperationTimedOut},
		{name: "dial refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, want: CodeCouldntConnect},
		{name: "read reset", err: &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}, want: CodeRecvError},
		{name: "unknown authority", err: &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}}, want: CodePeerFailedVerification},
		{name: "hostname mismatch", err: x509.HostnameError{Host: "x"}, want: CodePeerFailedVerification},
		{name: "tls record", err: tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, want: CodeSSLConnectError},
		{name: "coded", err: fmt.Errorf("outer: %w", NewTransportError(CodeWriteError, errors.New("x"))), want: CodeWriteError},
		{name: "unknown", err: errors.New("boom"), want: CodeRecvError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestNewTransportErrorDerivesCode(t *testing.T) {
	err := NewTransportError(CodeOK, context.DeadlineExceeded)
	assert.Equal(t, CodeOperationTimedOut, err.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "operation timed out")
}

func TestRequestErrorType(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorType
	}{
		{CodeOperationTimedOut, TimeoutError},
		{CodeHTTPReturnedError, HTTPError},
		{CodeURLMalformed, ValidationError},
		{CodeUnsupportedProtocol, ValidationError},
		{CodeCreateFile, CacheError},
		{CodeWriteError, CacheError},
		{CodeCouldntConnect, NetworkError},
		{CodePeerFailedVerification, NetworkError},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := &RequestError{Code: tt.code}
			assert.Equal(t, tt.want, err.Type())
			assert.True(t, IsErrorType(err, tt.want))
		})
	}
}

func TestRequestErrorMessage(t *testing.T) {
	inner := errors.New("inner")
	err := &RequestError{Code: CodeOperationTimedOut, Attempts: 4, Err: inner}

	assert.Equal(t, "request failed (code 28) after 4 attempts: operation timed out", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "request failed (code 7): refused", (&RequestError{Code: CodeCouldntConnect, Message: "refused", Attempts: 1}).Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeHTTPReturnedError, CodeOf(fmt.Errorf("x: %w", &RequestError{Code: CodeHTTPReturnedError})))
	assert.Equal(t, CodeCreateFile, CodeOf(&cookiejar.CacheError{Op: "mkdir", Path: "/x", Err: errors.New("denied")}))
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsErrorType(errors.New("plain"), NetworkError))
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "could not resolve host", CodeCouldntResolveHost.String())
	assert.Equal(t, "error 999", ErrorCode(999).String())
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(299))
	assert.False(t, IsSuccessStatus(302))
	assert.False(t, IsSuccessStatus(500))
}
