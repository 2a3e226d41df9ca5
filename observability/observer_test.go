package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/scenebridge/observability"
)

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(_ context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  string
	}{
		{level: 1, want: "TRACE"},
		{level: observability.LevelVerbose, want: "DEBUG"},
		{level: observability.LevelInfo, want: "INFO"},
		{level: observability.LevelWarning, want: "WARN"},
		{level: observability.LevelError, want: "ERROR"},
		{level: 24, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{level: observability.LevelVerbose, want: slog.LevelDebug},
		{level: observability.LevelInfo, want: slog.LevelInfo},
		{level: observability.LevelWarning, want: slog.LevelWarn},
		{level: observability.LevelError, want: slog.LevelError},
	}

	for _, tt := range tests {
		if got := tt.level.SlogLevel(); got != tt.want {
			t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	obs := observability.NewSlogObserver(logger)

	obs.OnEvent(context.Background(), observability.NewEvent(
		"bridge.loop.start", observability.LevelInfo, "bridge.StartEventLoop",
		map[string]any{"id": 7, "interactor": "Interactor (0x1)"},
	))
	obs.OnEvent(context.Background(), observability.NewEvent(
		"bridge.dispatch", observability.LevelVerbose, "bridge.Render", nil,
	))

	out := buf.String()
	for _, want := range []string{"bridge.loop.start", "source=bridge.StartEventLoop", "id=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "bridge.dispatch") {
		t.Errorf("verbose event logged at info level: %s", out)
	}
}

func TestMultiObserver(t *testing.T) {
	var a, b captureObserver
	multi := observability.NewMultiObserver(&a, nil, &b)

	multi.OnEvent(context.Background(), observability.NewEvent("x", observability.LevelInfo, "test", nil))

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("events = %d, %d, want 1, 1", len(a.events), len(b.events))
	}
}

func TestNoOpObserver(t *testing.T) {
	observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{Type: "x"})
}

func TestObserverFunc(t *testing.T) {
	var got observability.EventType
	obs := observability.ObserverFunc(func(_ context.Context, e observability.Event) { got = e.Type })
	obs.OnEvent(context.Background(), observability.Event{Type: "y"})
	if got != "y" {
		t.Errorf("ObserverFunc saw %q, want %q", got, "y")
	}
}

func TestOTelObserver(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	obs := observability.OTelObserver{}
	obs.OnEvent(ctx, observability.NewEvent("bridge.dispatch.failed", observability.LevelError, "bridge.Render",
		map[string]any{"id": uint32(9), "error": errors.New("not found")},
	))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 || events[0].Name != "bridge.dispatch.failed" {
		t.Fatalf("span events = %v, want one bridge.dispatch.failed", events)
	}

	var sawID bool
	for _, kv := range events[0].Attributes {
		if kv.Key == "id" && kv.Value.AsInt64() == 9 {
			sawID = true
		}
	}
	if !sawID {
		t.Errorf("span event attributes missing id=9: %v", events[0].Attributes)
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
}

func TestOTelObserver_NoSpan(t *testing.T) {
	observability.OTelObserver{}.OnEvent(context.Background(), observability.Event{Type: "x"})
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"noop", "slog", "otel"} {
		if obs, err := observability.GetObserver(name); err != nil || obs == nil {
			t.Errorf("GetObserver(%q) = %v, %v", name, obs, err)
		}
	}

	if _, err := observability.GetObserver("missing"); err == nil {
		t.Error("GetObserver(missing) error = nil")
	}

	var c captureObserver
	observability.RegisterObserver("capture", &c)
	obs, err := observability.GetObserver("capture")
	if err != nil {
		t.Fatalf("GetObserver(capture) error = %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "z"})
	if len(c.events) != 1 {
		t.Errorf("registered observer received %d events, want 1", len(c.events))
	}

	found := false
	for _, name := range observability.ObserverNames() {
		if name == "capture" {
			found = true
		}
	}
	if !found {
		t.Error("ObserverNames() missing capture")
	}
}
