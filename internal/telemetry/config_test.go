package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, DefaultServiceName, cfg.GetServiceName())
	assert.Equal(t, DefaultEndpoint, cfg.GetEndpoint())
	assert.False(t, cfg.tracingEnabled())
	assert.False(t, cfg.metricsEnabled())

	var nilCfg *Config
	assert.False(t, nilCfg.tracingEnabled())
	assert.NoError(t, nilCfg.Validate())

	cfg = &Config{ServiceName: "sync-staging", Endpoint: "otel:4318"}
	assert.Equal(t, "sync-staging", cfg.GetServiceName())
	assert.Equal(t, "otel:4318", cfg.GetEndpoint())
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true},
		Metrics: &MetricsConfig{Enabled: false},
	}
	assert.True(t, cfg.tracingEnabled())
	assert.False(t, cfg.metricsEnabled())

	cfg.Enabled = false
	assert.False(t, cfg.tracingEnabled())
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	var nilCfg *TracingConfig
	assert.Equal(t, DefaultSampling, nilCfg.GetSampling())
	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())
	assert.Equal(t, 0.25, (&TracingConfig{Sampling: 0.25}).GetSampling())
}

func TestMetricsConfig_GetExportInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *MetricsConfig
		expected time.Duration
	}{
		{name: "nil", config: nil, expected: DefaultExportInterval},
		{name: "unset", config: &MetricsConfig{}, expected: DefaultExportInterval},
		{name: "valid", config: &MetricsConfig{ExportInterval: "15s"}, expected: 15 * time.Second},
		{name: "invalid", config: &MetricsConfig{ExportInterval: "often"}, expected: DefaultExportInterval},
		{name: "negative", config: &MetricsConfig{ExportInterval: "-1s"}, expected: DefaultExportInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.config.GetExportInterval())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *Config
		wantErr []string
	}{
		{
			name:   "disabled ignores invalid values",
			config: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 7}},
		},
		{
			name: "valid",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 0.5},
				Metrics: &MetricsConfig{Enabled: true, ExportInterval: "30s"},
			},
		},
		{
			name:    "sampling out of range",
			config:  &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: []string{"tracing: sampling must be between 0.0 and 1.0"},
		},
		{
			name: "both invalid",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -0.1},
				Metrics: &MetricsConfig{Enabled: true, ExportInterval: "0s"},
			},
			wantErr: []string{"tracing:", "metrics: exportInterval must be a positive duration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
