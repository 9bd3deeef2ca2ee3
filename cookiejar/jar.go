package cookiejar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Jar maps cookie names to cookies and remembers insertion order.
// Overwriting a cookie keeps its original position.
type Jar struct {
	order   []string
	cookies map[string]Cookie
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{cookies: make(map[string]Cookie)}
}

// Set stores c under c.Name, replacing any previous record with that name.
func (j *Jar) Set(c Cookie) {
	if j.cookies == nil {
		j.cookies = make(map[string]Cookie)
	}
	if _, exists := j.cookies[c.Name]; !exists {
		j.order = append(j.order, c.Name)
	}
	j.cookies[c.Name] = c
}

// Get returns the cookie stored under name.
func (j *Jar) Get(name string) (Cookie, bool) {
	if j == nil {
		return Cookie{}, false
	}
	c, ok := j.cookies[name]
	return c, ok
}

// Len returns the number of cookies.
func (j *Jar) Len() int {
	if j == nil {
		return 0
	}
	return len(j.order)
}

// Cookies returns the cookies in jar order.
func (j *Jar) Cookies() []Cookie {
	if j == nil {
		return nil
	}
	out := make([]Cookie, 0, len(j.order))
	for _, name := range j.order {
		out = append(out, j.cookies[name])
	}
	return out
}

// Clone returns an independent copy.
func (j *Jar) Clone() *Jar {
	out := NewJar()
	for _, c := range j.Cookies() {
		if c.Attributes != nil {
			attrs := make(map[string]string, len(c.Attributes))
			for k, v := range c.Attributes {
				attrs[k] = v
			}
			c.Attributes = attrs
		}
		out.Set(c)
	}
	return out
}

// MarshalJSON encodes the jar as an object keyed by cookie name, in jar order.
func (j *Jar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range j.Cookies() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by cookie name, keeping document order.
// An empty JSON array is accepted as an empty jar.
func (j *Jar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	fresh := NewJar()
	switch tok {
	case json.Delim('['):
		if dec.More() {
			return errors.New("cookie jar: expected object, got non-empty array")
		}
		*j = *fresh
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("cookie jar: unexpected token %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("cookie jar: unexpected key %v", keyTok)
		}
		var c Cookie
		if err := dec.Decode(&c); err != nil {
			return fmt.Errorf("cookie jar: entry %q: %w", key, err)
		}
		if c.Name == "" {
			c.Name = key
		}
		fresh.Set(c)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*j = *fresh
	return nil
}
