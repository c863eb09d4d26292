package instance

import "fmt"

// ValidationError signals a bad create request (out-of-range port,
// invalid TLS material) that must never partially register an instance.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("instance: validation failed: %s", e.Reason) }

// ConflictError signals a duplicate id or an already-claimed port.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return fmt.Sprintf("instance: conflict: %s", e.Reason) }

// NotFoundError signals an operation against an unknown instance id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("instance: %q not found", e.ID) }

// CreationFailedError wraps an unexpected failure during bring-up (bind
// failure, listener start) after validation already passed.
type CreationFailedError struct {
	Cause error
}

func (e *CreationFailedError) Error() string { return fmt.Sprintf("instance: creation failed: %v", e.Cause) }
func (e *CreationFailedError) Unwrap() error { return e.Cause }
