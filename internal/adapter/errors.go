package adapter

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned when the backend session handle never
// reached the ready state. Requests never trigger re-initialization.
var ErrBackendUnavailable = errors.New("backend session is not initialized")

// ValidationError reports a malformed segment of the multimodal payload.
// It is dropped per-part, never fatal to the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FileDecodeError reports a data URL whose header or base64 payload could not
// be decoded. The offending part is dropped; the request continues.
type FileDecodeError struct {
	Reason string
	Err    error
}

func (e *FileDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("file decode failed: %s", e.Reason)
}

func (e *FileDecodeError) Unwrap() error {
	return e.Err
}

// BackendCallError wraps whatever failure the backend raised during send,
// uninterpreted.
type BackendCallError struct {
	Err error
}

func (e *BackendCallError) Error() string {
	return fmt.Sprintf("backend call failed: %v", e.Err)
}

func (e *BackendCallError) Unwrap() error {
	return e.Err
}
