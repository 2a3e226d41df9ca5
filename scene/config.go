package scene

const (
	defaultQueueSize = 64
	defaultWidth     = 300
	defaultHeight    = 300
)

// InteractorConfig holds interaction loop parameters.
type InteractorConfig struct {
	// Maximum number of events posted to a loop and not yet fired.
	//
	// Default is 64.
	QueueSize int `json:"queue_size,omitempty" env:"QUEUE_SIZE"`
}

// DefaultInteractorConfig returns the default interactor configuration.
func DefaultInteractorConfig() InteractorConfig {
	return InteractorConfig{QueueSize: defaultQueueSize}
}

// Merge applies non-zero values from source into c.
func (c *InteractorConfig) Merge(source *InteractorConfig) {
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
}
