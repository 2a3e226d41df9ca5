// Package hostrpc serves the bridge over Connect RPC so that hosts in other
// processes can drive registered scene objects and receive their events.
//
// Requests carry their arguments in a structpb.Struct ("id", "width",
// "height", "tag", "event"). Operations that the bridge reports as
// success or failure answer with a wrapperspb.BoolValue; a false result is
// not an RPC error. Malformed requests fail with CodeInvalidArgument.
package hostrpc

import "time"

const ServiceName = "scenebridge.v1.SceneService"

const (
	SetSizeProcedure        = "/" + ServiceName + "/SetSize"
	RenderProcedure         = "/" + ServiceName + "/Render"
	ResetCameraProcedure    = "/" + ServiceName + "/ResetCamera"
	StartEventLoopProcedure = "/" + ServiceName + "/StartEventLoop"
	StopEventLoopProcedure  = "/" + ServiceName + "/StopEventLoop"
	RemoveObserverProcedure = "/" + ServiceName + "/RemoveObserver"
	CapabilitiesProcedure   = "/" + ServiceName + "/Capabilities"
	WatchEventsProcedure    = "/" + ServiceName + "/WatchEvents"
)

// Config holds Server initialization parameters.
type Config struct {
	// Listen address.
	Addr string `json:"addr,omitempty" env:"ADDR"`

	// Events buffered per WatchEvents stream before new ones are dropped.
	EventBuffer int `json:"event_buffer,omitempty" env:"EVENT_BUFFER"`

	ReadHeaderTimeout time.Duration `json:"read_header_timeout,omitempty" env:"READ_HEADER_TIMEOUT"`

	// How long Serve waits for in-flight calls after its context ends.
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" env:"SHUTDOWN_TIMEOUT"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:7373",
		EventBuffer:       64,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.EventBuffer > 0 {
		c.EventBuffer = source.EventBuffer
	}
	if source.ReadHeaderTimeout > 0 {
		c.ReadHeaderTimeout = source.ReadHeaderTimeout
	}
	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}
