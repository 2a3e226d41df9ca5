package host_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/host"
	"github.com/tailored-agentic-units/scenebridge/observability"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"bridge": {"observer": "noop"},
		"interactor": {"queue_size": 8},
		"server": {"addr": "127.0.0.1:9000"},
		"script": {"path": "init.lua", "libraries": ["math"]},
		"log_level": "debug"
	}`)

	cfg, err := host.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Bridge.Observer != "noop" {
		t.Errorf("Bridge.Observer = %q, want noop", cfg.Bridge.Observer)
	}
	if cfg.Interactor.QueueSize != 8 {
		t.Errorf("Interactor.QueueSize = %d, want 8", cfg.Interactor.QueueSize)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:9000", cfg.Server.Addr)
	}
	if cfg.Server.EventBuffer != 64 {
		t.Errorf("Server.EventBuffer = %d, want default 64", cfg.Server.EventBuffer)
	}
	if !slices.Equal(cfg.Script.Libraries, []string{"math"}) {
		t.Errorf("Script.Libraries = %v, want [math]", cfg.Script.Libraries)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want DEBUG", cfg.SlogLevel())
	}
}

func TestLoadConfig_Env(t *testing.T) {
	path := writeFile(t, "config.json", `{"server": {"addr": "127.0.0.1:9000"}}`)
	t.Setenv("SCENEBRIDGE_SERVER_ADDR", "127.0.0.1:9100")
	t.Setenv("SCENEBRIDGE_SERVER_READ_HEADER_TIMEOUT", "2s")
	t.Setenv("SCENEBRIDGE_BRIDGE_OBSERVER", "otel")
	t.Setenv("SCENEBRIDGE_INTERACTOR_QUEUE_SIZE", "16")
	t.Setenv("SCENEBRIDGE_SCRIPT_LIBRARIES", "string,table")
	t.Setenv("SCENEBRIDGE_OTEL_ENDPOINT", "http://collector:4318")

	cfg, err := host.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9100" {
		t.Errorf("Server.Addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.Server.ReadHeaderTimeout != 2*time.Second {
		t.Errorf("Server.ReadHeaderTimeout = %v, want 2s", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Bridge.Observer != "otel" {
		t.Errorf("Bridge.Observer = %q, want otel", cfg.Bridge.Observer)
	}
	if cfg.Interactor.QueueSize != 16 {
		t.Errorf("Interactor.QueueSize = %d, want 16", cfg.Interactor.QueueSize)
	}
	if !slices.Equal(cfg.Script.Libraries, []string{"string", "table"}) {
		t.Errorf("Script.Libraries = %v, want [string table]", cfg.Script.Libraries)
	}
	if cfg.Telemetry.Endpoint != "http://collector:4318" {
		t.Errorf("Telemetry.Endpoint = %q", cfg.Telemetry.Endpoint)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := host.LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadConfig(missing) error = nil")
	}
	if _, err := host.LoadConfig(writeFile(t, "bad.json", `{`)); err == nil {
		t.Error("LoadConfig(invalid JSON) error = nil")
	}

	t.Setenv("SCENEBRIDGE_INTERACTOR_QUEUE_SIZE", "many")
	if _, err := host.LoadConfig(""); err == nil {
		t.Error("LoadConfig(bad env) error = nil")
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := host.Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNew_DefaultScene(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	h, err := host.New(nil, host.WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer h.Close()

	ids, err := h.BuildDefaultScene()
	if err != nil {
		t.Fatalf("BuildDefaultScene() error = %v", err)
	}
	if n := h.Registry().Len(); n != 3 {
		t.Errorf("Registry().Len() = %d, want 3", n)
	}

	ctx := context.Background()
	if !h.Manager().SetSize(ctx, ids.Window, 800, 600) {
		t.Error("SetSize(window) = false, want true")
	}
	if h.Manager().ResetCamera(ctx, ids.Window) {
		t.Error("ResetCamera(window) = true, want false")
	}
	if !h.Manager().ResetCamera(ctx, ids.Renderer) {
		t.Error("ResetCamera(renderer) = false, want true")
	}

	if !strings.Contains(logs.String(), "default scene registered") {
		t.Errorf("log output = %q, want scene registration", logs.String())
	}
}

func TestNew_Options(t *testing.T) {
	reg := handle.NewRegistry()
	var events []observability.Event
	obs := observability.ObserverFunc(func(_ context.Context, e observability.Event) {
		events = append(events, e)
	})
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h, err := host.New(nil,
		host.WithRegistry(reg),
		host.WithObserver(obs),
		host.WithTracerProvider(tp),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer h.Close()

	if h.Registry() != reg {
		t.Error("Registry() is not the provided registry")
	}

	h.Manager().Render(context.Background(), 42)

	if len(events) == 0 {
		t.Error("observer received no events")
	}
	if n := len(recorder.Ended()); n != 1 {
		t.Errorf("ended spans = %d, want 1", n)
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := host.DefaultConfig()
	cfg.Bridge.Observer = "missing"
	if _, err := host.New(&cfg); err == nil {
		t.Error("New(unknown observer) error = nil")
	}

	cfg = host.DefaultConfig()
	cfg.Script.Libraries = []string{"os"}
	if _, err := host.New(&cfg); err == nil {
		t.Error("New(os library) error = nil")
	}
}

func TestRunScript(t *testing.T) {
	cfg := host.DefaultConfig()
	cfg.Script.Path = writeFile(t, "init.lua", `
		local ids = scene.ids()
		assert(scene.set_size(ids[1], 1024, 768))
	`)

	h, err := host.New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer h.Close()

	ids, err := h.BuildDefaultScene()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunScript(context.Background()); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	obj, _ := h.Registry().Resolve(ids.Window)
	if w, hgt := obj.(*scene.RenderWindow).Size(); w != 1024 || hgt != 768 {
		t.Errorf("Size() = %dx%d, want 1024x768", w, hgt)
	}
}

func TestRunScript_None(t *testing.T) {
	h, err := host.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := h.RunScript(context.Background()); err != nil {
		t.Errorf("RunScript() without path error = %v", err)
	}
}

// loopHost builds a host whose script starts the default scene's event
// loop and records that the loop returned.
func loopHost(t *testing.T) *host.Host {
	t.Helper()

	path := filepath.Join(t.TempDir(), "loop.lua")
	cfg := host.DefaultConfig()
	cfg.Script.Path = path

	h, err := host.New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Close)

	ids, err := h.BuildDefaultScene()
	if err != nil {
		t.Fatal(err)
	}

	script := fmt.Sprintf("assert(scene.start_event_loop(%d))\n", ids.Window)
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatal(err)
	}
	return h
}

func runScript(ctx context.Context, h *host.Host) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.RunScript(ctx) }()
	return done
}

func TestRunScript_CancelledBeforeLoop(t *testing.T) {
	h := loopHost(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	select {
	case err := <-runScript(ctx, h):
		if err != nil {
			t.Errorf("RunScript() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunScript still blocked in a loop started after cancellation")
	}
}

func TestRunScript_CancelledDuringLoop(t *testing.T) {
	h := loopHost(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runScript(ctx, h)

	deadline := time.Now().Add(5 * time.Second)
	for h.Manager().Metrics().Snapshot().LoopsRunning != 1 {
		if time.Now().After(deadline) {
			t.Fatal("script did not start the event loop")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunScript() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunScript did not return after cancel")
	}
}

func TestServe(t *testing.T) {
	cfg := host.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"

	h, err := host.New(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := host.SetupTracing(context.Background(), host.TelemetryConfig{})
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestSetupTracing_Export(t *testing.T) {
	received := make(chan string, 16)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx := context.Background()
	shutdown, err := host.SetupTracing(ctx, host.TelemetryConfig{
		Endpoint:    collector.URL + "/v1/traces",
		ServiceName: "scenebridge-test",
	})
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}

	h, err := host.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	h.Manager().Render(ctx, 1)

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}

	select {
	case path := <-received:
		if path != "/v1/traces" {
			t.Errorf("export path = %q, want /v1/traces", path)
		}
	case <-time.After(5 * time.Second):
		t.Error("no spans exported")
	}
}
