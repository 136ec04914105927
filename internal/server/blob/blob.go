// Package blob abstracts the remote object store: store bytes and get back
// an opaque object id, fetch an object id back into bytes, and delete.
// Transports never attempt tamper detection; that is the verification
// layer's job.
package blob

import (
	"context"
	"fmt"
	"io"
)

// Transport operation phases reported inside TransportError.
const (
	OpStore  = "store"
	OpFetch  = "fetch"
	OpDelete = "delete"
)

// Store is the contract the verification protocol needs from an object
// store. Fetch must return exactly the bytes passed to the matching Put;
// chunking, retries and connection pooling are the implementation's
// internal concern.
type Store interface {
	// Put stores the content of src and returns an opaque object id.
	Put(ctx context.Context, src io.Reader) (string, error)

	// Get returns the full content of the object. The returned bytes are
	// exactly what the matching Put consumed.
	Get(ctx context.Context, objectID string) ([]byte, error)

	// Delete removes the object from the remote store.
	Delete(ctx context.Context, objectID string) error
}

// TransportError wraps any remote-store failure with the phase and object
// id, so callers can report it meaningfully.
type TransportError struct {
	Op       string
	ObjectID string
	Err      error
}

func (e *TransportError) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob %s %s: %v", e.Op, e.ObjectID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
