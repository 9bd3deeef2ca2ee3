package cookiejar

import (
	"strings"
	"time"
)

// DefaultExpiresOffset is subtracted from a cookie's expiry before comparing it with now.
const DefaultExpiresOffset = 8 * time.Hour

// expiresLayouts are tried in order when reading an expires attribute.
var expiresLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02-Jan-06 15:04:05 MST",
	time.RFC850,
	time.ANSIC,
	time.RFC3339,
}

// ParseExpires reads an expires attribute in any of the common cookie date forms.
func ParseExpires(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range expiresLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsSendable reports whether c may be attached to a request for currentPath at now.
//
// A cookie with an expires attribute is rejected when expires-offset is at or
// before now; an unreadable expires counts as expired. A cookie with a path
// other than "/" is rejected unless currentPath starts with that path (trailing
// slash ignored). The path check is a plain string prefix, not a segment match.
func IsSendable(c Cookie, currentPath string, now time.Time, offset time.Duration) bool {
	if c.Expires != "" {
		expires, ok := ParseExpires(c.Expires)
		if !ok || !expires.Add(-offset).After(now) {
			return false
		}
	}
	if c.Path != "" && c.Path != "/" && strings.HasPrefix(c.Path, "/") {
		if !strings.HasPrefix(currentPath, strings.TrimRight(c.Path, "/")) {
			return false
		}
	}
	return true
}

// Filter returns the sendable cookies of jar in jar order.
func Filter(jar *Jar, currentPath string, now time.Time, offset time.Duration) []Cookie {
	var out []Cookie
	for _, c := range jar.Cookies() {
		if IsSendable(c, currentPath, now, offset) {
			out = append(out, c)
		}
	}
	return out
}

// HeaderValue joins the raw name=value pairs with "; " for a Cookie request header.
func HeaderValue(cookies []Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	parts := make([]string, len(cookies))
	for i, c := range cookies {
		parts[i] = c.Raw
		if parts[i] == "" {
			parts[i] = c.Name + "=" + c.Value
		}
	}
	return strings.Join(parts, "; ")
}
