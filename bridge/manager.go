// Package bridge is the host-facing surface over registered scene objects.
//
// A host addresses objects only by handle.ID. Every operation resolves the
// identifier through the registry, checks that the object supports the
// behaviour it needs, and then forwards the call. Failures are reported as
// false (or 0 for AddObserver) with no side effect; not-found and
// wrong-capability are not distinguished at that surface. Check exposes the
// underlying reason for callers that want it.
package bridge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/observability"
)

const source = "bridge"

// Manager dispatches host operations to registered objects.
// It is safe for concurrent use; see StartEventLoop for the one operation
// that blocks.
type Manager struct {
	registry   *handle.Registry
	observer   observability.Observer
	provider   trace.TracerProvider
	tracerName string
	tracer     trace.Tracer
	metrics    *Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the observer that receives bridge events.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithTracerProvider sets the provider used for per-operation spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) {
		if tp != nil {
			m.provider = tp
		}
	}
}

// WithTracerName sets the instrumentation scope of the bridge's spans.
func WithTracerName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.tracerName = name
		}
	}
}

// New creates a Manager over registry. A nil registry gets a fresh one.
func New(registry *handle.Registry, opts ...Option) *Manager {
	if registry == nil {
		registry = handle.NewRegistry()
	}

	m := &Manager{
		registry:   registry,
		observer:   observability.NoOpObserver{},
		tracerName: defaultTracerName,
		metrics:    NewMetrics(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.provider == nil {
		m.provider = otel.GetTracerProvider()
	}
	m.tracer = m.provider.Tracer(m.tracerName)

	return m
}

// NewFromConfig creates a Manager whose observer and tracer scope come from
// cfg. Options are applied after the config and take precedence.
func NewFromConfig(cfg *Config, registry *handle.Registry, opts ...Option) (*Manager, error) {
	c := DefaultConfig()
	if cfg != nil {
		c.Merge(cfg)
	}

	obs, err := observability.GetObserver(c.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	base := []Option{WithObserver(obs), WithTracerName(c.TracerName)}
	return New(registry, append(base, opts...)...), nil
}

// Registry returns the registry the manager resolves identifiers in.
func (m *Manager) Registry() *handle.Registry { return m.registry }

// Metrics returns the manager's activity counters.
func (m *Manager) Metrics() *Metrics { return m.metrics }

func (m *Manager) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	m.observer.OnEvent(ctx, observability.NewEvent(typ, level, source, data))
}

func (m *Manager) start(ctx context.Context, op string, id handle.ID) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "bridge."+op,
		trace.WithAttributes(
			attribute.String("bridge.op", op),
			attribute.Int64("bridge.id", int64(id)),
		),
	)
}

// finish records the outcome of op. Failures are expected host input, so
// they are reported at verbose level.
func (m *Manager) finish(ctx context.Context, span trace.Span, op string, id handle.ID, err error) bool {
	ok := err == nil
	m.metrics.RecordDispatch(ok)

	if !ok {
		span.SetStatus(codes.Error, err.Error())
		m.emit(ctx, EventDispatchFailed, observability.LevelVerbose, map[string]any{
			"op":    op,
			"id":    id,
			"error": err.Error(),
		})
		return false
	}

	m.emit(ctx, EventDispatch, observability.LevelVerbose, map[string]any{
		"op": op,
		"id": id,
	})
	return true
}

// recoverOp converts a panic in a scene object into a failed operation.
// It must be deferred directly.
func (m *Manager) recoverOp(ctx context.Context, span trace.Span, op string, id handle.ID, ok *bool) {
	if r := recover(); r != nil {
		m.metrics.RecordDispatch(false)
		span.SetStatus(codes.Error, "panic")
		m.emit(ctx, EventPanic, observability.LevelError, map[string]any{
			"op":    op,
			"id":    id,
			"panic": fmt.Sprint(r),
		})
		*ok = false
	}
}
