package telemetry

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format is json or console.
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this adapter in exported spans.
	ServiceName string `yaml:"service_name"`
}
