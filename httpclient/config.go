package httpclient

import (
	"golang.org/x/time/rate"

	"github.com/gaborage/rurl/config"
	"github.com/gaborage/rurl/logger"
)

// NewFromConfig returns a Builder preset from cfg. Handlers, transports and
// telemetry providers can still be added before Build.
func NewFromConfig(cfg *config.ClientConfig, log logger.Logger) *Builder {
	b := NewBuilder(log)
	if cfg == nil {
		return b
	}

	b.WithTimeout(cfg.Timeout).
		WithMaxRequest(cfg.MaxRequest).
		WithInsecureSkipVerify(cfg.InsecureSkipVerify).
		WithCookieDir(cfg.CookieDir).
		WithCookieFile(cfg.CookieFile).
		WithCookieJarFile(cfg.CookieJarFile).
		WithResponseHeaderFile(cfg.HeaderFile).
		WithExpiresOffset(cfg.ExpiresOffset).
		WithRequestIDHeader(cfg.RequestIDHeader).
		WithRateLimit(rate.Limit(cfg.Rate.Limit), cfg.Rate.Burst)

	for k, v := range cfg.Headers {
		b.WithDefaultHeader(k, v)
	}
	return b
}
