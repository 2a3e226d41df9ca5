package scene

import "sync/atomic"

// externallyDriven records whether the interaction loop is owned by an
// external host rather than by the interactor itself. It starts false.
var externallyDriven atomic.Bool

// ExternallyDriven reports whether an external host owns the interaction
// loop. Interactors read it before claiming the window lifecycle.
func ExternallyDriven() bool {
	return externallyDriven.Load()
}

// SetExternallyDriven updates the process-wide loop ownership flag.
//
// The bridge's event-loop controller is its only writer. Nothing else
// in the process may call it.
func SetExternallyDriven(v bool) {
	externallyDriven.Store(v)
}
