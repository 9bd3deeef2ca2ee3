package httpclient

import (
	"net/url"
	"strings"
)

// Params are query parameters appended by MergeParams.
// url.Values is encoded with each value escaped and keys sorted; RawQuery is used verbatim.
type Params interface {
	Encode() string
}

// RawQuery is a pre-encoded query string.
type RawQuery string

func (q RawQuery) Encode() string {
	return string(q)
}

// ParamsFromMap converts a flat string map to url.Values.
func ParamsFromMap(m map[string]string) url.Values {
	v := make(url.Values, len(m))
	for k, val := range m {
		v.Set(k, val)
	}
	return v
}

// MergeParams appends params to the query of rawURL.
// The URL is reassembled from its parsed components as
// scheme://[userinfo@]host[:port]path?query#fragment, absent parts omitted.
// An existing query is kept ahead of the new parameters.
func MergeParams(rawURL string, params Params) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", newValidationError(CodeURLMalformed, "invalid url", err)
	}

	var extra string
	if params != nil {
		extra = strings.Trim(params.Encode(), "&")
	}

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}
	if u.Opaque != "" {
		b.WriteString(u.Opaque)
	} else {
		if u.Scheme != "" || u.Host != "" {
			b.WriteString("//")
		}
		if u.User != nil {
			b.WriteString(u.User.String())
			b.WriteByte('@')
		}
		b.WriteString(u.Host)
		b.WriteString(u.EscapedPath())
	}

	query := u.RawQuery
	if extra != "" {
		if query != "" {
			query += "&" + extra
		} else {
			query = extra
		}
	}
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String(), nil
}
