package cookiejar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		requestPath string
		expected    Cookie
	}{
		{
			name:        "pair with path and expires",
			line:        "Set-Cookie: sid=abc123; path=/admin; expires=Wed, 21 Oct 2037 07:28:00 GMT",
			requestPath: "/login",
			expected: Cookie{
				Name: "sid", Value: "abc123", Raw: "sid=abc123",
				Path: "/admin", Expires: "Wed, 21 Oct 2037 07:28:00 GMT",
			},
		},
		{
			name:        "missing path uses request directory",
			line:        "Set-Cookie: a=1",
			requestPath: "/shop/cart/view",
			expected:    Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/shop/cart"},
		},
		{
			name:        "trailing slash stripped before taking directory",
			line:        "Set-Cookie: a=1",
			requestPath: "/shop/cart/",
			expected:    Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/shop"},
		},
		{
			name:        "relative path attribute replaced",
			line:        "Set-Cookie: a=1; path=docs",
			requestPath: "/x",
			expected:    Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/"},
		},
		{
			name:        "no request path defaults to root",
			line:        "Set-Cookie: a=1",
			requestPath: "",
			expected:    Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/"},
		},
		{
			name:        "value keeps equals signs",
			line:        "Set-Cookie: token=a=b==; Path=/",
			requestPath: "/",
			expected:    Cookie{Name: "token", Value: "a=b==", Raw: "token=a=b==", Path: "/"},
		},
		{
			name:        "attribute values with equals are truncated",
			line:        "Set-Cookie: a=1; path=/; X-Meta=k=v",
			requestPath: "/",
			expected: Cookie{
				Name: "a", Value: "1", Raw: "a=1", Path: "/",
				Attributes: map[string]string{"X-Meta": "k"},
			},
		},
		{
			name:        "known attributes lowercased and flags kept",
			line:        "Set-Cookie: a=1; Domain=example.com; Secure; HttpOnly; Path=/",
			requestPath: "/",
			expected: Cookie{
				Name: "a", Value: "1", Raw: "a=1", Path: "/",
				Attributes: map[string]string{"domain": "example.com", "secure": "", "httponly": ""},
			},
		},
		{
			name:        "reserved attribute names dropped",
			line:        "Set-Cookie: a=1; kv=evil; key=evil; path=/",
			requestPath: "/",
			expected:    Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line, tt.requestPath)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	_, err := Parse("set-cookie: a=1", "/")
	assert.ErrorIs(t, err, ErrNotSetCookie)

	_, err = Parse("Content-Type: text/html", "/")
	assert.ErrorIs(t, err, ErrNotSetCookie)

	_, err = Parse("Set-Cookie: =nameless", "/")
	assert.ErrorIs(t, err, ErrMalformedCookie)

	_, err = Parse("Set-Cookie:", "/")
	assert.ErrorIs(t, err, ErrMalformedCookie)
}

func TestDefaultPath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"/a":       "/",
		"/a/b":     "/a",
		"/a/b/":    "/a",
		"/a/b/c.x": "/a/b",
		"rel":      "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, DefaultPath(in), "input %q", in)
	}
}
