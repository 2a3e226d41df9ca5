// Package scene provides the minimal scene objects the bridge drives:
// render windows, renderers with a camera, and interactors running a
// blocking interaction loop. Rendering itself is out of scope; objects
// track their state and fire the events a real pipeline would.
package scene

import (
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/scenebridge/event"
	"github.com/tailored-agentic-units/scenebridge/object"
)

// RenderWindow is a drawable surface holding renderers.
type RenderWindow struct {
	*object.Subject

	mu         sync.Mutex
	width      int
	height     int
	title      string
	renderers  []*Renderer
	interactor *Interactor
	frames     int
	closed     bool
}

// NewRenderWindow creates a 300x300 window.
func NewRenderWindow() *RenderWindow {
	w := &RenderWindow{width: defaultWidth, height: defaultHeight}
	w.Subject = object.NewSubject(w)
	return w
}

// SetSize resizes the window. A change fires WindowResizeEvent and then
// ModifiedEvent; resizing to the current size does nothing.
func (w *RenderWindow) SetSize(width, height int) {
	w.mu.Lock()
	if w.width == width && w.height == height {
		w.mu.Unlock()
		return
	}
	w.width, w.height = width, height
	w.mu.Unlock()

	w.InvokeEvent(event.WindowResizeEvent, [2]int{width, height})
	w.InvokeEvent(event.ModifiedEvent, nil)
}

// Size returns the window's width and height.
func (w *RenderWindow) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// SetTitle sets the window's title.
func (w *RenderWindow) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

// Title returns the window's title.
func (w *RenderWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

// AddRenderer appends r to the renderers drawn by Render.
func (w *RenderWindow) AddRenderer(r *Renderer) {
	w.mu.Lock()
	w.renderers = append(w.renderers, r)
	w.mu.Unlock()
}

// Renderers returns the window's renderers.
func (w *RenderWindow) Renderers() []*Renderer {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Renderer(nil), w.renderers...)
}

// SetInteractor attaches iren to the window, detaching any previous one.
func (w *RenderWindow) SetInteractor(iren *Interactor) {
	w.mu.Lock()
	prev := w.interactor
	w.interactor = iren
	w.mu.Unlock()

	if prev != nil && prev != iren {
		prev.setWindow(nil)
	}
	if iren != nil {
		iren.setWindow(w)
	}
}

// Interactor returns the attached interactor, or nil.
func (w *RenderWindow) Interactor() object.Interactor {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A nil *Interactor must not become a non-nil interface.
	if w.interactor == nil {
		return nil
	}
	return w.interactor
}

// Render draws every renderer once. It fires StartEvent, RenderEvent and
// EndEvent around the frame. A finalized window does not render.
func (w *RenderWindow) Render() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	renderers := append([]*Renderer(nil), w.renderers...)
	w.mu.Unlock()

	w.InvokeEvent(event.StartEvent, nil)
	for _, r := range renderers {
		r.Render()
	}

	w.mu.Lock()
	w.frames++
	w.mu.Unlock()

	w.InvokeEvent(event.RenderEvent, nil)
	w.InvokeEvent(event.EndEvent, nil)
}

// Frames returns the number of frames rendered.
func (w *RenderWindow) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Finalize releases the window surface. Later renders do nothing.
func (w *RenderWindow) Finalize() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// Closed reports whether the window has been finalized.
func (w *RenderWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *RenderWindow) ObjectDescription() string {
	width, height := w.Size()
	return fmt.Sprintf("RenderWindow (%p) %dx%d", w, width, height)
}
