package cookiejar

import (
	"bytes"
	"crypto/md5" //nolint:gosec // md5 names cache files, it is not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
)

// JSON field names of a persisted cookie.
const (
	fieldName    = "key"
	fieldValue   = "value"
	fieldRaw     = "kv"
	fieldPath    = "path"
	fieldExpires = "expires"
)

// Cookie is one stored cookie. Name is unique within a Jar.
type Cookie struct {
	Name  string
	Value string
	// Raw is the literal name=value pair as it appeared in Set-Cookie; it is what gets sent back.
	Raw  string
	Path string
	// Expires is the unparsed expires attribute; empty means the cookie has none.
	Expires string
	// Attributes holds every other attribute (domain, secure, max-age, ...). Flags have empty values.
	Attributes map[string]string
}

func (c *Cookie) setAttribute(name, value string) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	c.Attributes[name] = value
}

// Attribute returns an extra attribute and whether it was present.
func (c Cookie) Attribute(name string) (string, bool) {
	v, ok := c.Attributes[name]
	return v, ok
}

// MarshalJSON flattens the cookie into {"key","value","kv","path","expires",...attributes}.
func (c Cookie) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k, v string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	fixed := [][2]string{{fieldName, c.Name}, {fieldValue, c.Value}, {fieldRaw, c.Raw}, {fieldPath, c.Path}}
	if c.Expires != "" {
		fixed = append(fixed, [2]string{fieldExpires, c.Expires})
	}
	for _, kv := range fixed {
		if err := write(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(c.Attributes))
	for k := range c.Attributes {
		if !isReservedField(k) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	for _, k := range names {
		if err := write(k, c.Attributes[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the flattened form. Non-string attribute values are
// stringified and nulls become empty flags.
func (c *Cookie) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Cookie{}
	for k, v := range raw {
		s := stringify(v)
		switch k {
		case fieldName:
			c.Name = s
		case fieldValue:
			c.Value = s
		case fieldRaw:
			c.Raw = s
		case fieldPath:
			c.Path = s
		case fieldExpires:
			c.Expires = s
		default:
			c.setAttribute(k, s)
		}
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func isReservedField(k string) bool {
	switch k {
	case fieldName, fieldValue, fieldRaw, fieldPath, fieldExpires:
		return true
	}
	return false
}

// Origin identifies a jar: the scheme and host of a URL, without port.
type Origin struct {
	Scheme string
	Host   string
}

// OriginOf extracts the origin of u.
func OriginOf(u *url.URL) Origin {
	return Origin{Scheme: u.Scheme, Host: u.Hostname()}
}

// Key is the hex md5 of scheme+host, used as the jar's file name.
func (o Origin) Key() string {
	sum := md5.Sum([]byte(o.Scheme + o.Host)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}
