// Package httpclient executes HTTP requests with per-origin cookie
// persistence and bounded retries on timeout.
//
// Cookies
//   - With a cookie directory configured, every call loads the jar of the
//     target origin (scheme + host), sends the cookies that are still valid
//     for the request path, and saves every Set-Cookie header received back.
//   - A Netscape cookie file can be configured as an extra read-only source
//     and another one as a write-only sink refreshed after every call.
//   - Cache write failures are reported on Response.CacheErr and never abort
//     the request.
//
// Retries
//   - Only timed-out attempts (CodeOperationTimedOut) are retried.
//   - Retries are immediate; MaxRequest bounds the number of extra attempts.
//   - An optional rate limiter paces attempts.
//
// Results
//   - Every call returns an explicit (*Response, error) pair. Failures are
//     *RequestError values carrying a numeric code compatible with curl's.
//   - OnFinished and OnError handlers observe the same values.
//
// Calls on one Client are serialised: at most one request is in flight.
package httpclient
