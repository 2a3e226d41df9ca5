// Package luabind exposes the bridge to sandboxed Lua scripts.
//
// A script sees a global "scene" table whose functions mirror the bridge
// operations. Script callbacks registered with scene.add_observer run on
// whichever goroutine fires the event; the Runtime serializes them with
// the script itself by holding its lock whenever Lua code runs and
// releasing it around every bridge call.
package luabind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/google/uuid"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
)

const callbacksKey = "scenebridge.callbacks"

var (
	ErrClosed  = errors.New("runtime closed")
	ErrLibrary = errors.New("library not allowed in sandbox")
)

var sandboxLibraries = map[string]lua.Function{
	"string": lua.StringOpen,
	"table":  lua.TableOpen,
	"math":   lua.MathOpen,
	"bit32":  lua.Bit32Open,
}

type binding struct {
	id  handle.ID
	tag uint64
}

// Runtime is a Lua state bound to a bridge Manager.
type Runtime struct {
	id     uuid.UUID
	mgr    *bridge.Manager
	logger *slog.Logger
	state  *lua.State

	mu       sync.Mutex
	ctx      context.Context
	closed   bool
	nextRef  int
	bindings map[int]*binding
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for script output and callback errors.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a sandboxed Runtime over mgr with the libraries named in cfg.
func New(mgr *bridge.Manager, cfg *Config, opts ...Option) (*Runtime, error) {
	c := DefaultConfig()
	if cfg != nil {
		c.Merge(cfg)
	}

	r := &Runtime{
		id:       uuid.Must(uuid.NewV7()),
		mgr:      mgr,
		logger:   slog.Default(),
		state:    lua.NewState(),
		ctx:      context.Background(),
		nextRef:  1,
		bindings: make(map[int]*binding),
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := openSandbox(r.state, c.Libraries); err != nil {
		return nil, err
	}
	r.state.NewTable()
	r.state.SetField(lua.RegistryIndex, callbacksKey)

	r.state.PushGoFunction(r.print)
	r.state.SetGlobal("print")

	r.state.NewTable()
	lua.SetFunctions(r.state, r.sceneFunctions(), 0)
	r.state.SetGlobal("scene")

	return r, nil
}

// ID returns the unique identifier of the runtime.
func (r *Runtime) ID() uuid.UUID { return r.id }

// Exec runs src. It blocks for as long as the script does, including any
// event loop the script starts.
func (r *Runtime) Exec(ctx context.Context, src string) error {
	return r.ExecNamed(ctx, "script", src)
}

// ExecNamed runs src as a chunk called name, which appears in error
// messages.
func (r *Runtime) ExecNamed(ctx context.Context, name, src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	r.ctx = ctx

	if err := lua.LoadBuffer(r.state, src, name, ""); err != nil {
		r.state.Pop(1)
		return fmt.Errorf("load %s: %w", name, err)
	}
	return r.call(name)
}

// ExecFile runs the script at path.
func (r *Runtime) ExecFile(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	r.ctx = ctx

	if err := lua.LoadFile(r.state, path, ""); err != nil {
		r.state.Pop(1)
		return fmt.Errorf("load %s: %w", path, err)
	}
	return r.call(path)
}

func (r *Runtime) call(name string) error {
	top := r.state.Top() - 1
	defer r.state.SetTop(top)

	if err := r.state.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Observers returns the number of script callbacks still attached.
func (r *Runtime) Observers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// Close detaches every script callback. Later calls to Exec fail with
// ErrClosed.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	attached := make([]binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if b.tag != 0 {
			attached = append(attached, *b)
		}
	}
	ctx := r.ctx
	r.mu.Unlock()

	for _, b := range attached {
		r.mgr.RemoveObserver(ctx, b.id, b.tag)
	}
}

// unlocked runs fn with the runtime lock released so that events fired by
// fn can reach script callbacks. It must be called from Lua code.
func (r *Runtime) unlocked(fn func()) {
	r.mu.Unlock()
	defer r.mu.Lock()
	fn()
}

// ref stores the function at index in the callback table.
// Callers hold the lock.
func (r *Runtime) ref(l *lua.State, index int) int {
	index = l.AbsIndex(index)
	ref := r.nextRef
	r.nextRef++

	l.Field(lua.RegistryIndex, callbacksKey)
	l.PushValue(index)
	l.RawSetInt(-2, ref)
	l.Pop(1)
	return ref
}

// unref drops ref from the callback table. Callers hold the lock.
func (r *Runtime) unref(ref int) {
	if _, ok := r.bindings[ref]; !ok {
		return
	}
	delete(r.bindings, ref)

	l := r.state
	l.Field(lua.RegistryIndex, callbacksKey)
	l.PushNil()
	l.RawSetInt(-2, ref)
	l.Pop(1)
}

// invoke calls the script function stored at ref.
func (r *Runtime) invoke(ref int, origin handle.ID, eventName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, ok := r.bindings[ref]; !ok {
		return
	}

	l := r.state
	top := l.Top()
	defer l.SetTop(top)

	l.Field(lua.RegistryIndex, callbacksKey)
	l.RawGetInt(-1, ref)
	l.Remove(-2)
	l.PushInteger(int(origin))
	l.PushString(eventName)

	if err := l.ProtectedCall(2, 0, 0); err != nil {
		r.logger.WarnContext(r.ctx, "script callback failed",
			"id", origin,
			"event", eventName,
			"error", err)
	}
}

func (r *Runtime) print(l *lua.State) int {
	n := l.Top()
	args := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		args = append(args, luaValue(l, i))
	}
	r.logger.InfoContext(r.ctx, strings.Join(args, "\t"), "source", "lua")
	return 0
}

func luaValue(l *lua.State, index int) string {
	switch l.TypeOf(index) {
	case lua.TypeNil:
		return "nil"
	case lua.TypeBoolean:
		return fmt.Sprint(l.ToBoolean(index))
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return fmt.Sprint(n)
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	default:
		return lua.TypeNameOf(l, index)
	}
}

// openSandbox loads the base library and the named extras. Anything that
// reads files or loads code is removed from the base library.
func openSandbox(l *lua.State, libraries []string) error {
	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)

	for _, name := range libraries {
		if name == "_G" {
			continue
		}
		open, ok := sandboxLibraries[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrLibrary, name)
		}
		lua.Require(l, name, open, true)
		l.Pop(1)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		l.PushNil()
		l.SetGlobal(name)
	}
	return nil
}
