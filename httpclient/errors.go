package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"

	"github.com/gaborage/rurl/cookiejar"
)

// ErrorCode is a numeric failure code. Values follow curl's error numbering.
type ErrorCode int

const (
	CodeOK                     ErrorCode = 0
	CodeUnsupportedProtocol    ErrorCode = 1
	CodeURLMalformed           ErrorCode = 3
	CodeCouldntResolveHost     ErrorCode = 6
	CodeCouldntConnect         ErrorCode = 7
	CodeHTTPReturnedError      ErrorCode = 22
	CodeWriteError             ErrorCode = 23
	CodeOperationTimedOut      ErrorCode = 28
	CodeSSLConnectError        ErrorCode = 35
	CodeAbortedByCallback      ErrorCode = 42
	CodeRecvError              ErrorCode = 56
	CodePeerFailedVerification ErrorCode = 60
	CodeCreateFile             ErrorCode = cookiejar.CodeCreateFile
)

var codeNames = map[ErrorCode]string{
	CodeOK:                     "ok",
	CodeUnsupportedProtocol:    "unsupported protocol",
	CodeURLMalformed:           "url malformed",
	CodeCouldntResolveHost:     "could not resolve host",
	CodeCouldntConnect:         "could not connect",
	CodeHTTPReturnedError:      "http returned error",
	CodeWriteError:             "write error",
	CodeOperationTimedOut:      "operation timed out",
	CodeSSLConnectError:        "ssl connect error",
	CodeAbortedByCallback:      "aborted",
	CodeRecvError:              "failure receiving data",
	CodePeerFailedVerification: "peer certificate verification failed",
	CodeCreateFile:             "could not create cache file",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error %d", int(c))
}

// ClientError represents different types of client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError    ErrorType = "network"
	TimeoutError    ErrorType = "timeout"
	HTTPError       ErrorType = "http"
	ValidationError ErrorType = "validation"
	CacheError      ErrorType = "cache"
)

// RequestError is the failure outcome of a call.
type RequestError struct {
	Code     ErrorCode
	Message  string
	Attempts int
	// StatusCode is set for CodeHTTPReturnedError.
	StatusCode int
	// CacheErr reports a cookie cache or header file failure seen during the call.
	CacheErr error
	Err      error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("request failed (code %d) after %d attempts: %s", e.Code, e.Attempts, msg)
	}
	return fmt.Sprintf("request failed (code %d): %s", e.Code, msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Type maps the code onto the error taxonomy.
func (e *RequestError) Type() ErrorType {
	switch e.Code {
	case CodeOperationTimedOut:
		return TimeoutError
	case CodeHTTPReturnedError:
		return HTTPError
	case CodeUnsupportedProtocol, CodeURLMalformed:
		return ValidationError
	case CodeCreateFile, CodeWriteError:
		return CacheError
	default:
		return NetworkError
	}
}

func newValidationError(code ErrorCode, message string, err error) *RequestError {
	return &RequestError{Code: code, Message: message, Err: err}
}

// TransportError is returned by transports for a failed attempt.
type TransportError struct {
	Code ErrorCode
	Err  error
}

// NewTransportError wraps err with code. A zero code is derived from err.
func NewTransportError(code ErrorCode, err error) *TransportError {
	if code == CodeOK {
		code = ClassifyError(err)
	}
	return &TransportError{Code: code, Err: err}
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorCode reports the attempt's failure code.
func (e *TransportError) ErrorCode() ErrorCode {
	return e.Code
}

type coded interface {
	ErrorCode() ErrorCode
}

// ClassifyError derives a failure code from a transport-level error.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}

	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	if errors.Is(err, context.Canceled) {
		return CodeAbortedByCallback
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeOperationTimedOut
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CodeOperationTimedOut
		}
		return CodeCouldntResolveHost
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeOperationTimedOut
	}

	if isCertificateError(err) {
		return CodePeerFailedVerification
	}
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return CodeSSLConnectError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return CodeCouldntConnect
	}
	return CodeRecvError
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var invalidErr x509.CertificateInvalidError
	var hostnameErr x509.HostnameError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &hostnameErr)
}

// CodeOf returns the failure code carried by err, CodeOK for nil.
func CodeOf(err error) ErrorCode {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Code
	}
	var cacheErr *cookiejar.CacheError
	if errors.As(err, &cacheErr) {
		return ErrorCode(cacheErr.Code())
	}
	return ClassifyError(err)
}

// IsTimeout reports whether err is a timed-out request or attempt.
func IsTimeout(err error) bool {
	return err != nil && CodeOf(err) == CodeOperationTimedOut
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
