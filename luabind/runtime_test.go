package luabind_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
	"github.com/tailored-agentic-units/scenebridge/luabind"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

type fixture struct {
	mgr  *bridge.Manager
	win  *scene.RenderWindow
	ren  *scene.Renderer
	iren *scene.Interactor
	rt   *luabind.Runtime
	logs *bytes.Buffer
}

// newFixture registers a default scene as window 7, renderer 8 and
// interactor 9.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := handle.NewRegistry()
	win, ren, iren := scene.NewDefault(scene.DefaultInteractorConfig())
	for id, obj := range map[handle.ID]any{7: win, 8: ren, 9: iren} {
		if err := reg.RegisterAt(id, obj); err != nil {
			t.Fatalf("RegisterAt(%d) error = %v", id, err)
		}
	}

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mgr := bridge.New(reg)
	rt, err := luabind.New(mgr, nil, luabind.WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f := &fixture{
		mgr:  mgr,
		win:  win,
		ren:  ren,
		iren: iren,
		rt:   rt,
		logs: logs,
	}
	t.Cleanup(f.rt.Close)
	return f
}

func (f *fixture) run(t *testing.T, src string) {
	t.Helper()
	if err := f.rt.ExecNamed(context.Background(), t.Name(), src); err != nil {
		t.Fatalf("ExecNamed() error = %v", err)
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		assert(scene.set_size(7, 800, 600) == true)
		assert(scene.set_size(99, 800, 600) == false)
		assert(scene.reset_camera(7) == false)
		assert(scene.reset_camera(8) == true)
		assert(scene.render(7) == true)
		assert(scene.render(8) == false)
		assert(scene.render(-1) == false)
		assert(scene.render(2^40) == false)
	`)

	if w, h := f.win.Size(); w != 800 || h != 600 {
		t.Errorf("Size() = %dx%d, want 800x600", w, h)
	}
	if n := f.win.Frames(); n != 1 {
		t.Errorf("Frames() = %d, want 1", n)
	}
}

func TestObservers(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		local seen = {}
		local tag = scene.add_observer(7, "RenderEvent", function(id, name)
			seen[#seen + 1] = id .. ":" .. name
		end)
		assert(tag > 0)

		scene.render(7)
		assert(#seen == 1 and seen[1] == "7:RenderEvent", seen[1])

		assert(scene.remove_observer(7, tag))
		scene.render(7)
		assert(#seen == 1)

		assert(scene.add_observer(99, "RenderEvent", function() end) == 0)
	`)

	if n := f.rt.Observers(); n != 0 {
		t.Errorf("Observers() = %d, want 0", n)
	}
}

func TestObservers_FromGo(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		count = 0
		scene.add_observer(8, "ResetCameraEvent", function() count = count + 1 end)
	`)

	f.ren.ResetCamera()
	f.ren.ResetCamera()

	f.run(t, `assert(count == 2, count)`)
}

func TestObservers_ReleasedOnDestroy(t *testing.T) {
	f := newFixture(t)

	f.run(t, `scene.add_observer(8, "EndEvent", function() end)`)
	if n := f.rt.Observers(); n != 1 {
		t.Fatalf("Observers() = %d, want 1", n)
	}

	f.ren.Destroy()

	if n := f.rt.Observers(); n != 0 {
		t.Errorf("Observers() = %d after destroy, want 0", n)
	}
}

func TestEventLoop(t *testing.T) {
	defer scene.SetExternallyDriven(false)
	f := newFixture(t)

	f.run(t, `
		local events = {}
		scene.add_observer(9, "StartEvent", function(id, name)
			events[#events + 1] = name
			assert(scene.stop_event_loop(7))
		end)
		scene.add_observer(9, "ExitEvent", function(id, name)
			events[#events + 1] = name
		end)

		assert(scene.start_event_loop(7) == true)
		assert(#events == 2 and events[1] == "StartEvent" and events[2] == "ExitEvent")
		assert(scene.start_event_loop(8) == false)
	`)

	if f.win.Closed() {
		t.Error("script-driven loop finalized the window")
	}
}

func TestCapabilitiesAndIDs(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		local caps = scene.capabilities(8)
		local set = {}
		for _, c in ipairs(caps) do set[c] = true end
		assert(set.camera and set.observable and not set.window)

		local none, reason = scene.capabilities(99)
		assert(none == nil and string.find(reason, "not found"))

		local ids = scene.ids()
		assert(#ids == 3 and ids[1] == 7 and ids[3] == 9)
	`)
}

func TestSandbox(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		assert(dofile == nil and loadfile == nil and load == nil)
		assert(io == nil and os == nil and debug == nil and package == nil)
		assert(string.upper("x") == "X" and math.floor(1.5) == 1)
	`)
}

func TestPrint(t *testing.T) {
	f := newFixture(t)

	f.run(t, `print("frame", 3, true, nil)`)

	if got := f.logs.String(); !strings.Contains(got, `msg="frame\t3\ttrue\tnil"`) {
		t.Errorf("log output = %q, want printed line", got)
	}
}

func TestCallbackError(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		scene.add_observer(7, "RenderEvent", function() error("boom") end)
		assert(scene.render(7))
	`)

	if got := f.logs.String(); !strings.Contains(got, "script callback failed") {
		t.Errorf("log output = %q, want callback failure", got)
	}
}

func TestScriptErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `scene.render(`},
		{"runtime", `error("fail")`},
		{"bad argument", `scene.render("seven")`},
		{"missing function", `scene.add_observer(7, "RenderEvent", 1)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.rt.ExecNamed(ctx, tt.name, tt.src); err == nil {
				t.Error("ExecNamed() error = nil, want error")
			}
		})
	}

	f.run(t, `assert(scene.render(7))`)
}

func TestExecFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "init.lua")
	if err := os.WriteFile(path, []byte(`scene.set_size(7, 640, 480)`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := f.rt.ExecFile(context.Background(), path); err != nil {
		t.Fatalf("ExecFile() error = %v", err)
	}
	if w, h := f.win.Size(); w != 640 || h != 480 {
		t.Errorf("Size() = %dx%d, want 640x480", w, h)
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t)

	f.run(t, `
		scene.add_observer(7, "RenderEvent", function() end)
		scene.add_observer(8, "ResetCameraEvent", function() end)
	`)

	f.rt.Close()

	if n := f.rt.Observers(); n != 0 {
		t.Errorf("Observers() = %d after Close, want 0", n)
	}
	if n := f.mgr.Metrics().Snapshot().ObserversLive; n != 0 {
		t.Errorf("ObserversLive = %d after Close, want 0", n)
	}
	if err := f.rt.Exec(context.Background(), ""); !errors.Is(err, luabind.ErrClosed) {
		t.Errorf("Exec() after Close error = %v, want ErrClosed", err)
	}
}

func TestNew_Libraries(t *testing.T) {
	mgr := bridge.New(nil)

	rt, err := luabind.New(mgr, &luabind.Config{Libraries: []string{"math"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer rt.Close()

	if err := rt.Exec(context.Background(), `assert(string == nil and table == nil and math ~= nil)`); err != nil {
		t.Errorf("Exec() error = %v", err)
	}
	if rt.ID() == uuid.Nil {
		t.Error("ID() = Nil")
	}

	for _, name := range []string{"os", "io", "debug", "package"} {
		if _, err := luabind.New(mgr, &luabind.Config{Libraries: []string{name}}); !errors.Is(err, luabind.ErrLibrary) {
			t.Errorf("New(%s) error = %v, want ErrLibrary", name, err)
		}
	}
}
