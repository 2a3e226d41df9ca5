package handle

import "errors"

// Sentinel errors for registry operations.
var (
	ErrNilObject         = errors.New("object is nil")
	ErrInvalidID         = errors.New("identifier is invalid")
	ErrIDInUse           = errors.New("identifier already in use")
	ErrAlreadyRegistered = errors.New("object already registered")
	ErrNotComparable     = errors.New("object is not comparable")
	ErrExhausted         = errors.New("identifier space exhausted")
	ErrDestroyed         = errors.New("object already destroyed")
)
