package luabind

import (
	"math"

	"github.com/Shopify/go-lua"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
)

func (r *Runtime) sceneFunctions() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "set_size", Function: r.setSize},
		{Name: "render", Function: r.render},
		{Name: "reset_camera", Function: r.resetCamera},
		{Name: "start_event_loop", Function: r.startEventLoop},
		{Name: "stop_event_loop", Function: r.stopEventLoop},
		{Name: "add_observer", Function: r.addObserver},
		{Name: "remove_observer", Function: r.removeObserver},
		{Name: "capabilities", Function: r.capabilities},
		{Name: "ids", Function: r.ids},
	}
}

// checkID reads an identifier argument. Values outside the identifier
// range map to handle.Invalid, which never resolves.
func checkID(l *lua.State, arg int) handle.ID {
	n := lua.CheckInteger(l, arg)
	if n < 0 || uint64(n) > math.MaxUint32 {
		return handle.Invalid
	}
	return handle.ID(n)
}

func (r *Runtime) setSize(l *lua.State) int {
	id := checkID(l, 1)
	width := lua.CheckInteger(l, 2)
	height := lua.CheckInteger(l, 3)

	var ok bool
	r.unlocked(func() { ok = r.mgr.SetSize(r.ctx, id, width, height) })
	l.PushBoolean(ok)
	return 1
}

func (r *Runtime) render(l *lua.State) int {
	id := checkID(l, 1)

	var ok bool
	r.unlocked(func() { ok = r.mgr.Render(r.ctx, id) })
	l.PushBoolean(ok)
	return 1
}

func (r *Runtime) resetCamera(l *lua.State) int {
	id := checkID(l, 1)

	var ok bool
	r.unlocked(func() { ok = r.mgr.ResetCamera(r.ctx, id) })
	l.PushBoolean(ok)
	return 1
}

func (r *Runtime) startEventLoop(l *lua.State) int {
	id := checkID(l, 1)

	var ok bool
	r.unlocked(func() { ok = r.mgr.StartEventLoop(r.ctx, id) })
	l.PushBoolean(ok)
	return 1
}

func (r *Runtime) stopEventLoop(l *lua.State) int {
	id := checkID(l, 1)

	var ok bool
	r.unlocked(func() { ok = r.mgr.StopEventLoop(r.ctx, id) })
	l.PushBoolean(ok)
	return 1
}

// addObserver implements scene.add_observer(id, event, fn) -> tag.
func (r *Runtime) addObserver(l *lua.State) int {
	id := checkID(l, 1)
	name := lua.CheckString(l, 2)
	lua.CheckType(l, 3, lua.TypeFunction)

	ref := r.ref(l, 3)
	b := &binding{id: id}
	r.bindings[ref] = b

	release := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.unref(ref)
	}
	cb := func(origin handle.ID, eventName string) {
		r.invoke(ref, origin, eventName)
	}

	var tag uint64
	r.unlocked(func() { tag = r.mgr.AddObserverFunc(r.ctx, id, name, cb, release) })

	if tag == 0 {
		r.unref(ref)
	} else {
		b.tag = tag
	}
	l.PushInteger(int(tag))
	return 1
}

func (r *Runtime) removeObserver(l *lua.State) int {
	id := checkID(l, 1)
	tag := lua.CheckInteger(l, 2)
	if tag < 0 {
		tag = 0
	}

	var ok bool
	r.unlocked(func() { ok = r.mgr.RemoveObserver(r.ctx, id, uint64(tag)) })
	l.PushBoolean(ok)
	return 1
}

// capabilities returns a list of capability names, or nil and a reason.
func (r *Runtime) capabilities(l *lua.State) int {
	id := checkID(l, 1)

	var caps []bridge.Capability
	var err error
	r.unlocked(func() { caps, err = r.mgr.Capabilities(id) })
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}

	l.NewTable()
	for i, c := range caps {
		l.PushString(string(c))
		l.RawSetInt(-2, i+1)
	}
	return 1
}

func (r *Runtime) ids(l *lua.State) int {
	var ids []handle.ID
	r.unlocked(func() { ids = r.mgr.Registry().IDs() })

	l.NewTable()
	for i, id := range ids {
		l.PushInteger(int(id))
		l.RawSetInt(-2, i+1)
	}
	return 1
}
