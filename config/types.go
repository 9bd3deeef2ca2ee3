package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/rurl/observability"
)

// Config is the complete rurl configuration.
// The koanf instance is kept for access to keys outside the struct.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log"`
	// Observability configures trace and metric export. Disabled by default.
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig configures the request executor.
type ClientConfig struct {
	// Timeout bounds a single attempt. Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	// MaxRequest is the number of extra attempts after a timed-out one. Default: 3.
	MaxRequest int `koanf:"maxrequest" json:"maxrequest" yaml:"maxrequest" validate:"gte=0,lte=100"`

	// CookieDir enables the per-origin cookie cache when set.
	CookieDir string `koanf:"cookiedir" json:"cookiedir" yaml:"cookiedir"`
	// CookieFile is a Netscape cookie file whose cookies are sent with every request.
	CookieFile string `koanf:"cookiefile" json:"cookiefile" yaml:"cookiefile"`
	// CookieJarFile receives the origin's cookies in Netscape format after every request.
	CookieJarFile string `koanf:"cookiejarfile" json:"cookiejarfile" yaml:"cookiejarfile"`
	// HeaderFile receives the raw response header lines of the last request.
	HeaderFile string `koanf:"headerfile" json:"headerfile" yaml:"headerfile"`

	InsecureSkipVerify bool `koanf:"insecureskipverify" json:"insecureskipverify" yaml:"insecureskipverify"`
	// ExpiresOffset is subtracted from cookie expiry times. Default: 8h.
	ExpiresOffset time.Duration `koanf:"expiresoffset" json:"expiresoffset" yaml:"expiresoffset" validate:"gte=0"`
	// RequestIDHeader names the correlation header. Default: X-Request-ID.
	RequestIDHeader string `koanf:"requestidheader" json:"requestidheader" yaml:"requestidheader"`
	// Headers are sent with every request unless overridden per call.
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers"`

	Rate RateConfig `koanf:"rate" json:"rate" yaml:"rate"`
}

// RateConfig paces attempts. A zero Limit disables pacing.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=0"`
}

// LogConfig configures the zerolog-backed logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// Koanf exposes the underlying koanf instance; nil for hand-built configs.
func (c *Config) Koanf() *koanf.Koanf {
	return c.k
}
