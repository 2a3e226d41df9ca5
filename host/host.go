// Package host composes the registry, bridge, RPC server and script
// runtime into one process.
//
// The host initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	h, err := host.New(cfg)
//	ids, err := h.BuildDefaultScene()
//	err = h.Serve(ctx)
package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/hostrpc"
	"github.com/tailored-agentic-units/scenebridge/luabind"
	"github.com/tailored-agentic-units/scenebridge/observability"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

// Option configures a Host before its subsystems are created.
type Option func(*Host)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithObserver overrides the observer named in the bridge config.
func WithObserver(o observability.Observer) Option {
	return func(h *Host) { h.observer = o }
}

// WithRegistry overrides the host-created registry.
func WithRegistry(r *handle.Registry) Option {
	return func(h *Host) { h.registry = r }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Host) { h.tracerProvider = tp }
}

// SceneIDs are the identifiers BuildDefaultScene registered.
type SceneIDs struct {
	Window     handle.ID
	Renderer   handle.ID
	Interactor handle.ID
}

// Host owns one bridge and the surfaces that expose it.
type Host struct {
	id             uuid.UUID
	cfg            Config
	logger         *slog.Logger
	observer       observability.Observer
	registry       *handle.Registry
	tracerProvider trace.TracerProvider

	manager  *bridge.Manager
	server   *hostrpc.Server
	runtime  *luabind.Runtime
	sceneIDs SceneIDs
}

// New creates a Host from configuration. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Host, error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}

	h := &Host{
		id:  uuid.Must(uuid.NewV7()),
		cfg: c,
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.registry == nil {
		h.registry = handle.NewRegistry()
	}
	if h.tracerProvider == nil {
		h.tracerProvider = otel.GetTracerProvider()
	}
	if h.observer == nil {
		obs, err := h.namedObserver(c.Bridge.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
		h.observer = obs
	}

	h.manager = bridge.New(h.registry,
		bridge.WithObserver(h.observer),
		bridge.WithTracerProvider(h.tracerProvider),
		bridge.WithTracerName(c.Bridge.TracerName),
	)

	h.server = hostrpc.NewServer(h.manager, &c.Server, hostrpc.WithLogger(h.logger))

	scriptCfg := c.Script.Runtime()
	rt, err := luabind.New(h.manager, &scriptCfg, luabind.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create script runtime: %w", err)
	}
	h.runtime = rt

	return h, nil
}

// namedObserver resolves an observer by name. "slog" writes to the host
// logger rather than the process default.
func (h *Host) namedObserver(name string) (observability.Observer, error) {
	if name == "" || name == "slog" {
		return observability.NewSlogObserver(h.logger), nil
	}
	return observability.GetObserver(name)
}

// ID returns the unique identifier of the host.
func (h *Host) ID() uuid.UUID { return h.id }

// Config returns the configuration the host was built from.
func (h *Host) Config() Config { return h.cfg }

// Registry returns the host's object registry.
func (h *Host) Registry() *handle.Registry { return h.registry }

// Manager returns the host's bridge.
func (h *Host) Manager() *bridge.Manager { return h.manager }

// Server returns the host's RPC server.
func (h *Host) Server() *hostrpc.Server { return h.server }

// Runtime returns the host's script runtime.
func (h *Host) Runtime() *luabind.Runtime { return h.runtime }

// BuildDefaultScene creates a window with one renderer and an attached
// interactor, and registers all three.
func (h *Host) BuildDefaultScene() (SceneIDs, error) {
	win, ren, iren := scene.NewDefault(h.cfg.Interactor)

	var ids SceneIDs
	var err error
	if ids.Window, err = h.registry.Register(win); err != nil {
		return SceneIDs{}, fmt.Errorf("failed to register window: %w", err)
	}
	if ids.Renderer, err = h.registry.Register(ren); err != nil {
		return SceneIDs{}, fmt.Errorf("failed to register renderer: %w", err)
	}
	if ids.Interactor, err = h.registry.Register(iren); err != nil {
		return SceneIDs{}, fmt.Errorf("failed to register interactor: %w", err)
	}

	h.sceneIDs = ids
	h.logger.Info("default scene registered",
		"host", h.id,
		"window", ids.Window,
		"renderer", ids.Renderer,
		"interactor", ids.Interactor)
	return ids, nil
}

// RunScript runs the configured script, if any. It blocks while the script
// runs, including any event loop the script starts. Once ctx is done the
// default scene's loop is stopped, even one started after cancellation.
func (h *Host) RunScript(ctx context.Context) error {
	if h.cfg.Script.Path == "" {
		return nil
	}
	defer h.stopLoopOnDone(ctx)()

	h.logger.InfoContext(ctx, "running script", "path", h.cfg.Script.Path, "runtime", h.runtime.ID())
	return h.runtime.ExecFile(ctx, h.cfg.Script.Path)
}

// Serve serves RPC on the configured address until ctx is done. An event
// loop started over RPC is stopped when ctx ends.
func (h *Host) Serve(ctx context.Context) error {
	defer h.stopLoopOnDone(ctx)()
	return h.server.ListenAndServe(ctx)
}

// stopLoopOnDone ends the default scene's event loop once ctx is done.
// TerminateApp only reaches a running loop, so a StartEvent observer also
// stops loops that begin after cancellation. The returned func detaches it.
func (h *Host) stopLoopOnDone(ctx context.Context) func() {
	ids := h.sceneIDs
	if ids.Window == handle.Invalid {
		return func() {}
	}
	bg := context.WithoutCancel(ctx)

	tag := h.manager.AddObserver(bg, ids.Interactor, event.StartEvent.String(), func(handle.ID, string) {
		if ctx.Err() != nil {
			h.manager.StopEventLoop(bg, ids.Window)
		}
	})

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(bg, "stopping event loop", "window", ids.Window)
			h.manager.StopEventLoop(bg, ids.Window)
		case <-done:
		}
	}()

	return func() {
		close(done)
		if tag != 0 {
			h.manager.RemoveObserver(bg, ids.Interactor, tag)
		}
	}
}

// Close detaches script observers.
func (h *Host) Close() {
	h.runtime.Close()
}
