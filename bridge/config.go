package bridge

const defaultTracerName = "github.com/tailored-agentic-units/scenebridge/bridge"

// Config holds Manager initialization parameters.
type Config struct {
	// Name of the observability observer receiving bridge events
	// ("slog", "noop", "otel" or a registered name).
	//
	// Default is "slog".
	Observer string `json:"observer,omitempty" env:"OBSERVER"`

	// Instrumentation scope of the bridge's spans.
	TracerName string `json:"tracer_name,omitempty" env:"TRACER_NAME"`
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() Config {
	return Config{
		Observer:   "slog",
		TracerName: defaultTracerName,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.TracerName != "" {
		c.TracerName = source.TracerName
	}
}
