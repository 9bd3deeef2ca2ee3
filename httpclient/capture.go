package httpclient

import (
	"io"
	"strings"

	"github.com/gaborage/rurl/cookiejar"
	"github.com/gaborage/rurl/logger"
)

// headerCapture is the per-call state behind the transport's HeaderFunc.
// Its inputs are fixed when the call starts.
type headerCapture struct {
	origin      cookiejar.Origin
	requestPath string
	store       *cookiejar.Store
	jar         *cookiejar.Jar
	headerOut   io.Writer
	log         logger.Logger

	captured int
	cacheErr error
}

// onHeader records one response header line and always consumes it fully.
func (h *headerCapture) onHeader(line string) int {
	if h.headerOut != nil {
		if _, err := io.WriteString(h.headerOut, line); err != nil && h.cacheErr == nil {
			h.log.Warn().Err(err).Msg("Failed to write response header file")
			h.cacheErr = err
		}
	}

	trimmed := strings.TrimRight(line, "\r\n")
	if h.jar == nil || !strings.HasPrefix(trimmed, cookiejar.SetCookiePrefix) {
		return len(line)
	}

	c, err := cookiejar.Parse(trimmed, h.requestPath)
	if err != nil {
		h.log.Debug().Err(err).Str("origin", h.origin.String()).Msg("Ignoring unparseable Set-Cookie header")
		return len(line)
	}
	h.jar.Set(c)
	h.captured++

	if h.store != nil {
		if err := h.store.Save(h.origin, h.jar); err != nil {
			h.log.Warn().Err(err).Str("origin", h.origin.String()).Msg("Failed to persist cookie jar")
			h.cacheErr = err
		}
	}
	return len(line)
}
