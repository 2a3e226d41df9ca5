package object

// Observable is implemented by objects that accept observers.
// *Subject satisfies it, so types embedding a *Subject do too.
type Observable interface {
	AddObserver(name string, cmd *Command) uint64
	RemoveObserver(tag uint64)
}

// Renderable is implemented by objects that can draw themselves.
type Renderable interface {
	Render()
}

// Interactor drives the interaction loop of a window.
type Interactor interface {
	// Start runs the interaction loop on the calling goroutine and
	// returns once TerminateApp has been called.
	Start()

	// TerminateApp asks a running loop to exit. It does not wait.
	TerminateApp()

	// UpdateSize resizes the window the interactor is attached to.
	UpdateSize(width, height int)
}

// Window is a renderable surface with an optional interactor.
type Window interface {
	Renderable

	// Interactor returns the attached interactor, or nil.
	Interactor() Interactor
}

// CameraResetter is implemented by renderer-like objects.
type CameraResetter interface {
	ResetCamera()
}

// Describer is implemented by objects that can describe themselves
// for logs.
type Describer interface {
	ObjectDescription() string
}
