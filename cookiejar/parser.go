package cookiejar

import (
	"errors"
	"path"
	"strings"
)

// SetCookiePrefix is the case-sensitive header prefix recognised by Parse.
const SetCookiePrefix = "Set-Cookie:"

var (
	// ErrNotSetCookie is returned for header lines that are not Set-Cookie lines.
	ErrNotSetCookie = errors.New("cookiejar: not a Set-Cookie header line")
	// ErrMalformedCookie is returned when the name=value pair has no name.
	ErrMalformedCookie = errors.New("cookiejar: malformed cookie pair")
)

// knownAttributes are matched case-insensitively and stored lowercase.
var knownAttributes = map[string]struct{}{
	"domain":   {},
	"max-age":  {},
	"secure":   {},
	"httponly": {},
	"samesite": {},
}

// Parse turns one raw "Set-Cookie: ..." header line into a Cookie.
//
// Parsing is deliberately lenient: attribute segments are split on '=' and only
// the first two fields are kept, so attribute values containing '=' are cut
// short. A missing or relative path attribute is replaced by the directory of
// requestPath.
func Parse(line, requestPath string) (Cookie, error) {
	if !strings.HasPrefix(line, SetCookiePrefix) {
		return Cookie{}, ErrNotSetCookie
	}

	segments := strings.Split(strings.TrimSpace(line[len(SetCookiePrefix):]), ";")
	pair := strings.TrimSpace(segments[0])
	name, value, _ := strings.Cut(pair, "=")
	if name == "" {
		return Cookie{}, ErrMalformedCookie
	}

	c := Cookie{Name: name, Value: value, Raw: pair}
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		fields := strings.Split(seg, "=")
		attr := strings.TrimSpace(fields[0])
		val := ""
		if len(fields) > 1 {
			val = strings.TrimSpace(fields[1])
		}
		c.applyAttribute(attr, val)
	}

	if !strings.HasPrefix(c.Path, "/") {
		c.Path = DefaultPath(requestPath)
	}
	return c, nil
}

func (c *Cookie) applyAttribute(name, value string) {
	lower := strings.ToLower(name)
	switch lower {
	case fieldPath:
		c.Path = value
		return
	case fieldExpires:
		c.Expires = value
		return
	}
	if isReservedField(lower) || name == "" {
		return
	}
	if _, ok := knownAttributes[lower]; ok {
		name = lower
	}
	c.setAttribute(name, value)
}

// DefaultPath is the directory of a request path with any trailing slash
// stripped first; "/" when nothing is left.
func DefaultPath(requestPath string) string {
	p := strings.TrimSuffix(requestPath, "/")
	if p == "" {
		return "/"
	}
	dir := path.Dir(p)
	if dir == "." || dir == "" {
		return "/"
	}
	return dir
}
