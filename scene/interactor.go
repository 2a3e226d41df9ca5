package scene

import (
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// Interactor runs the interaction loop of a RenderWindow.
//
// Events posted with PostEvent from any goroutine are fired on the
// goroutine blocked in Start, so observers see them one at a time.
type Interactor struct {
	*object.Subject

	mu      sync.Mutex
	window  *RenderWindow
	queue   *EventQueue[event.ID]
	running bool
	stop    chan struct{}
}

// NewInteractor creates an interactor that is not attached to a window.
func NewInteractor(cfg InteractorConfig) *Interactor {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	i := &Interactor{queue: NewEventQueue[event.ID](size)}
	i.Subject = object.NewSubject(i)
	return i
}

func (i *Interactor) setWindow(w *RenderWindow) {
	i.mu.Lock()
	i.window = w
	i.mu.Unlock()
}

// RenderWindow returns the window the interactor drives, or nil.
func (i *Interactor) RenderWindow() *RenderWindow {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.window
}

// UpdateSize resizes the attached window.
func (i *Interactor) UpdateSize(width, height int) {
	if w := i.RenderWindow(); w != nil {
		w.SetSize(width, height)
	}
}

// PostEvent queues eid for the running loop.
// It returns false when the queue is full.
func (i *Interactor) PostEvent(eid event.ID) bool {
	return i.queue.Post(eid)
}

// Running reports whether Start is currently looping.
func (i *Interactor) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Start blocks running the interaction loop until TerminateApp is called.
// It fires StartEvent before looping and ExitEvent after. Calling Start
// while a loop is already running returns immediately.
//
// Unless an external host drives the loop (see ExternallyDriven), the
// interactor owns the window and finalizes it when the loop ends.
func (i *Interactor) Start() {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return
	}
	i.running = true
	stop := make(chan struct{})
	i.stop = stop
	owns := !ExternallyDriven()
	i.mu.Unlock()

	i.InvokeEvent(event.StartEvent, nil)

loop:
	for {
		select {
		case <-stop:
			break loop
		case eid := <-i.queue.C():
			i.fire(eid)
		}
	}

	i.mu.Lock()
	i.running = false
	i.stop = nil
	w := i.window
	i.mu.Unlock()

	i.InvokeEvent(event.ExitEvent, nil)

	if owns && w != nil {
		w.Finalize()
	}
}

// TerminateApp asks a running loop to exit and returns without waiting.
// It does nothing when no loop is running.
func (i *Interactor) TerminateApp() {
	i.mu.Lock()
	if i.stop != nil {
		close(i.stop)
		i.stop = nil
	}
	i.mu.Unlock()
}

func (i *Interactor) fire(eid event.ID) {
	i.InvokeEvent(eid, nil)
	if eid == event.ExposeEvent {
		if w := i.RenderWindow(); w != nil {
			w.Render()
		}
	}
}

func (i *Interactor) ObjectDescription() string {
	return fmt.Sprintf("Interactor (%p)", i)
}

// NewDefault creates a window with one renderer and an attached interactor.
func NewDefault(cfg InteractorConfig) (*RenderWindow, *Renderer, *Interactor) {
	w := NewRenderWindow()
	r := NewRenderer()
	w.AddRenderer(r)
	iren := NewInteractor(cfg)
	w.SetInteractor(iren)
	return w, r, iren
}
