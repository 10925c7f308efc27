// Package handler provides the HTTP handlers of the OpenAI-compatible surface.
package handler

import (
	"context"

	"github.com/Mag1cFall/Gemini-Web2API/internal/adapter"
	"github.com/Mag1cFall/Gemini-Web2API/internal/gemini"
)

// Session is the single operation the chat handler needs from the backend:
// send one prompt with attachments, get one complete reply.
type Session interface {
	Send(ctx context.Context, prompt string, attachmentPaths []string, model string) (gemini.Reply, error)
}

// BackendState enumerates the lifecycle of the process-wide backend handle.
// The only transition, uninitialized to ready or failed, happens once during
// startup before the server accepts requests; afterwards the handle is
// read-only.
type BackendState int

const (
	// BackendUninitialized means the session secrets were never provided.
	BackendUninitialized BackendState = iota

	// BackendReady means the session initialized and serves every request.
	BackendReady

	// BackendFailed means initialization threw; the handle stays failed for
	// the life of the process. Requests never retrigger initialization.
	BackendFailed
)

// Backend is the constructed-once context handed to request handlers in
// place of a mutable global client reference.
type Backend struct {
	state   BackendState
	session Session
}

// NewUninitializedBackend returns a handle for a process started without the
// session secrets. Every chat request is rejected before any backend call.
func NewUninitializedBackend() *Backend {
	return &Backend{state: BackendUninitialized}
}

// NewReadyBackend wraps an initialized session.
func NewReadyBackend(session Session) *Backend {
	return &Backend{state: BackendReady, session: session}
}

// NewFailedBackend returns a handle for a process whose session
// initialization failed permanently.
func NewFailedBackend() *Backend {
	return &Backend{state: BackendFailed}
}

// State reports the handle's lifecycle state.
func (b *Backend) State() BackendState {
	return b.state
}

// Session returns the ready session, or ErrBackendUnavailable when the
// handle never reached the ready state.
func (b *Backend) Session() (Session, error) {
	if b.state != BackendReady {
		return nil, adapter.ErrBackendUnavailable
	}
	return b.session, nil
}
