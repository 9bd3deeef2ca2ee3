package cookiejar

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	netscapeHeader  = "# Netscape HTTP Cookie File"
	httpOnlyPrefix  = "#HttpOnly_"
	netscapeFields  = 7
	netscapeTrue    = "TRUE"
	netscapeFalse   = "FALSE"
	attributeDomain = "domain"
	attributeSecure = "secure"
	attributeHTTP   = "httponly"
)

// ReadNetscape loads the cookies for origin from a Netscape/curl cookie file.
// Comment and malformed lines are skipped, expired entries are dropped and
// secure cookies are only returned for https origins.
func ReadNetscape(fsys afero.Fs, path string, o Origin, now time.Time) ([]Cookie, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	var cookies []Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		httpOnly := strings.HasPrefix(line, httpOnlyPrefix)
		if httpOnly {
			line = line[len(httpOnlyPrefix):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != netscapeFields {
			continue
		}
		domain, cookiePath, secure := fields[0], fields[2], strings.EqualFold(fields[3], netscapeTrue)
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		if !matchesDomain(domain, o.Host) {
			continue
		}
		if expiry > 0 && !time.Unix(expiry, 0).After(now) {
			continue
		}
		if secure && o.Scheme != "https" {
			continue
		}

		c := Cookie{Name: fields[5], Value: fields[6], Raw: fields[5] + "=" + fields[6], Path: cookiePath}
		c.setAttribute(attributeDomain, domain)
		if secure {
			c.setAttribute(attributeSecure, "")
		}
		if httpOnly {
			c.setAttribute(attributeHTTP, "")
		}
		cookies = append(cookies, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return cookies, nil
}

// WriteNetscape replaces path with the cookies of jar in Netscape format.
func WriteNetscape(fsys afero.Fs, path string, o Origin, jar *Jar) error {
	if err := ensureFile(fsys, path); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(netscapeHeader + "\n\n")
	for _, c := range jar.Cookies() {
		domain, ok := c.Attribute(attributeDomain)
		if !ok || domain == "" {
			domain = o.Host
		}
		includeSub := netscapeFalse
		if strings.HasPrefix(domain, ".") {
			includeSub = netscapeTrue
		}
		secure := netscapeFalse
		if _, ok := c.Attribute(attributeSecure); ok {
			secure = netscapeTrue
		}
		var expiry int64
		if t, ok := ParseExpires(c.Expires); ok {
			expiry = t.Unix()
		}
		if _, ok := c.Attribute(attributeHTTP); ok {
			buf.WriteString(httpOnlyPrefix)
		}
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", domain, includeSub, c.Path, secure, expiry, c.Name, c.Value)
	}

	if err := afero.WriteFile(fsys, path, buf.Bytes(), filePerm); err != nil {
		return &CacheError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// matchesDomain accepts exact, dot-prefixed and parent-domain entries for host.
func matchesDomain(cookieDomain, host string) bool {
	cookieDomain = strings.ToLower(cookieDomain)
	host = strings.ToLower(host)
	if cookieDomain == host || cookieDomain == "."+host {
		return true
	}
	return strings.HasPrefix(cookieDomain, ".") && strings.HasSuffix(host, cookieDomain)
}
