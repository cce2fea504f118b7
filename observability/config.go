package observability

import (
	"fmt"
	"time"
)

// Config configures OpenTelemetry export. Tracing and metrics are off
// unless enabled; the global no-op providers stay in place then.
type Config struct {
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	MetricsEnabled  bool          `mapstructure:"metrics_enabled"`
	Endpoint        string        `mapstructure:"endpoint"` // OTLP HTTP host:port
	Insecure        bool          `mapstructure:"insecure"`
	SampleRate      float64       `mapstructure:"sample_rate"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`

	// Filled from the service config, not read from files.
	ServiceName    string `mapstructure:"-"`
	ServiceVersion string `mapstructure:"-"`
	Environment    string `mapstructure:"-"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == 0 {
		c.MetricsInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1 (got: %v)", c.SampleRate)
	}
	if c.MetricsInterval < 0 {
		return fmt.Errorf("observability.metrics_interval must be non-negative (got: %s)", c.MetricsInterval)
	}
	return nil
}

// Enabled reports whether any exporter is configured.
func (c *Config) Enabled() bool { return c.TracingEnabled || c.MetricsEnabled }
