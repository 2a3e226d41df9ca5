package bridge

import "errors"

// Failure reasons. Host-facing operations reduce these to false or 0;
// Check returns them to callers that need to tell them apart.
var (
	ErrNotFound           = errors.New("identifier not found")
	ErrCapabilityMismatch = errors.New("capability mismatch")
	ErrInvalidArgument    = errors.New("invalid argument")
)
