package observability

import (
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that prints telemetry to stdout.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	defaultServiceName    = "rurl"
	defaultSampleRate     = 1.0
	defaultMetricInterval = 30 * time.Second
	defaultExportTimeout  = 10 * time.Second
)

// Config configures trace and metric export for the request client.
type Config struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// ServiceName is reported as service.name. Default: rurl.
	ServiceName    string `koanf:"servicename" json:"servicename" yaml:"servicename"`
	ServiceVersion string `koanf:"serviceversion" json:"serviceversion" yaml:"serviceversion"`
	// Endpoint is an OTLP collector address or EndpointStdout. Default: stdout.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	// Protocol is ProtocolHTTP or ProtocolGRPC. Default: http.
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	// SampleRate is the trace sampling ratio in [0, 1]. Default: 1.
	SampleRate *float64 `koanf:"samplerate" json:"samplerate" yaml:"samplerate"`
	// Metrics enables the meter provider. Default: true when enabled.
	Metrics        *bool         `koanf:"metrics" json:"metrics" yaml:"metrics"`
	MetricInterval time.Duration `koanf:"metricinterval" json:"metricinterval" yaml:"metricinterval"`
	ExportTimeout  time.Duration `koanf:"exporttimeout" json:"exporttimeout" yaml:"exporttimeout"`
}

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == nil {
		c.SampleRate = Float64Ptr(defaultSampleRate)
	}
	if c.Metrics == nil {
		c.Metrics = BoolPtr(true)
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = defaultExportTimeout
	}
}

// Validate checks an enabled configuration. Disabled configurations are always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return ErrInvalidProtocol
	}
	if strings.Contains(c.Endpoint, "://") {
		return ErrInvalidEndpointFormat
	}
	return nil
}
