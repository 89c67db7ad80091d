// Package telemetry exports traces and metrics of sync runs over OTLP/HTTP.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName identifies the process in traces and metrics
	DefaultServiceName = "catalog-sync"

	// DefaultEndpoint is the default OTLP/HTTP collector endpoint
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples every run. A run produces a single trace.
	DefaultSampling = 1.0

	// DefaultExportInterval is the period of the metric reader in watch mode
	DefaultExportInterval = 60 * time.Second
)

// Config is the telemetry section of the configuration file
type Config struct {
	// Enabled turns on the OTLP exporters. When false every provider is a no-op.
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "catalog-sync"
	ServiceName string `yaml:"serviceName,omitempty"`

	// Endpoint is "host:port" of the collector; /v1/traces and /v1/metrics are appended
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig enables run and item spans
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of sampled runs in [0, 1]. Zero means DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig enables the sync metrics
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// ExportInterval is the period of the metric reader (e.g. "30s")
	ExportInterval string `yaml:"exportInterval,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

// GetSampling returns the sampling ratio. An unset ratio cannot be told apart from
// an explicit zero, so zero means DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c == nil || c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExportInterval returns the export interval, using default if unset or invalid
func (c *MetricsConfig) GetExportInterval() time.Duration {
	if c == nil || c.ExportInterval == "" {
		return DefaultExportInterval
	}
	d, err := time.ParseDuration(c.ExportInterval)
	if err != nil || d <= 0 {
		return DefaultExportInterval
	}
	return d
}

// Validate validates the telemetry configuration
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && c.Tracing.Enabled && (c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1) {
		errs = append(errs, fmt.Errorf("tracing: sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
	}
	if c.Metrics != nil && c.Metrics.Enabled && c.Metrics.ExportInterval != "" {
		if d, err := time.ParseDuration(c.Metrics.ExportInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("metrics: exportInterval must be a positive duration, got %q",
				c.Metrics.ExportInterval))
		}
	}
	return errors.Join(errs...)
}
