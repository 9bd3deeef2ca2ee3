package cookiejar

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func expiresAt(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func TestIsSendableExpiry(t *testing.T) {
	tests := []struct {
		name     string
		expires  string
		expected bool
	}{
		{name: "no expires", expires: "", expected: true},
		{name: "far future", expires: expiresAt(testNow.Add(48 * time.Hour)), expected: true},
		{name: "past", expires: expiresAt(testNow.Add(-time.Hour)), expected: false},
		{name: "future but within offset", expires: expiresAt(testNow.Add(7 * time.Hour)), expected: false},
		{name: "exactly offset is expired", expires: expiresAt(testNow.Add(8 * time.Hour)), expected: false},
		{name: "just past offset", expires: expiresAt(testNow.Add(8*time.Hour + time.Second)), expected: true},
		{name: "dashed cookie date", expires: testNow.Add(24 * time.Hour).Format("Mon, 02-Jan-2006 15:04:05 MST"), expected: true},
		{name: "unparseable counts as expired", expires: "someday", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cookie{Name: "a", Value: "1", Raw: "a=1", Path: "/", Expires: tt.expires}
			assert.Equal(t, tt.expected, IsSendable(c, "/", testNow, DefaultExpiresOffset))
		})
	}
}

func TestIsSendableCustomOffset(t *testing.T) {
	c := Cookie{Name: "a", Raw: "a=1", Path: "/", Expires: expiresAt(testNow.Add(time.Hour))}
	assert.True(t, IsSendable(c, "/", testNow, 0))
	assert.False(t, IsSendable(c, "/", testNow, DefaultExpiresOffset))
}

func TestIsSendablePath(t *testing.T) {
	tests := []struct {
		name        string
		cookiePath  string
		currentPath string
		expected    bool
	}{
		{name: "admin cookie on admin path", cookiePath: "/admin", currentPath: "/admin/x", expected: true},
		{name: "admin cookie on public path", cookiePath: "/admin", currentPath: "/pub/x", expected: false},
		{name: "literal prefix not segment", cookiePath: "/admin", currentPath: "/administrator", expected: true},
		{name: "trailing slash ignored", cookiePath: "/admin/", currentPath: "/admin", expected: true},
		{name: "root always sent", cookiePath: "/", currentPath: "/anything", expected: true},
		{name: "empty path sent", cookiePath: "", currentPath: "/anything", expected: true},
		{name: "relative path not checked", cookiePath: "docs", currentPath: "/x", expected: true},
		{name: "empty request path rejected", cookiePath: "/admin", currentPath: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cookie{Name: "a", Raw: "a=1", Path: tt.cookiePath}
			assert.Equal(t, tt.expected, IsSendable(c, tt.currentPath, testNow, DefaultExpiresOffset))
		})
	}
}

func TestFilterAndHeaderValue(t *testing.T) {
	jar := NewJar()
	jar.Set(Cookie{Name: "first", Value: "1", Raw: "first=1", Path: "/"})
	jar.Set(Cookie{Name: "old", Value: "x", Raw: "old=x", Path: "/", Expires: expiresAt(testNow.Add(-time.Hour))})
	jar.Set(Cookie{Name: "admin", Value: "2", Raw: "admin=2", Path: "/admin"})
	jar.Set(Cookie{Name: "last", Value: "3", Raw: "last=3", Path: "/"})

	sent := Filter(jar, "/admin/panel", testNow, DefaultExpiresOffset)
	assert.Equal(t, "first=1; admin=2; last=3", HeaderValue(sent))

	sent = Filter(jar, "/pub", testNow, DefaultExpiresOffset)
	assert.Equal(t, "first=1; last=3", HeaderValue(sent))

	assert.Empty(t, HeaderValue(nil))
	assert.Empty(t, Filter(NewJar(), "/", testNow, DefaultExpiresOffset))
}

func TestHeaderValueFallsBackToNameValue(t *testing.T) {
	assert.Equal(t, "a=1", HeaderValue([]Cookie{{Name: "a", Value: "1"}}))
}

func TestParseExpires(t *testing.T) {
	got, ok := ParseExpires("Wed, 21 Oct 2037 07:28:00 GMT")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2037, time.October, 21, 7, 28, 0, 0, time.UTC).Unix(), got.Unix())

	_, ok = ParseExpires("")
	assert.False(t, ok)
}
