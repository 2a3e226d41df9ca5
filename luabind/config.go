package luabind

// Config holds Runtime initialization parameters.
type Config struct {
	// Libraries opened in addition to the base library. Allowed names are
	// "string", "table", "math" and "bit32".
	Libraries []string `json:"libraries,omitempty" env:"LIBRARIES"`
}

// DefaultConfig opens every library the sandbox allows.
func DefaultConfig() Config {
	return Config{
		Libraries: []string{"string", "table", "math", "bit32"},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Libraries != nil {
		c.Libraries = source.Libraries
	}
}
