package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ErrObjectNotFound is the underlying cause inside a TransportError when
// the memory store has no object with the requested id.
var ErrObjectNotFound = errors.New("object not found")

// MemoryStore keeps blobs in process memory. Used by tests and throwaway
// runs; Overwrite exists so tamper scenarios can be simulated.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Op: OpStore, Err: err}
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", &TransportError{Op: OpStore, Err: err}
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.objects[id] = data
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, objectID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: OpFetch, ObjectID: objectID, Err: err}
	}

	s.mu.Lock()
	data, ok := s.objects[objectID]
	s.mu.Unlock()
	if !ok {
		return nil, &TransportError{Op: OpFetch, ObjectID: objectID, Err: ErrObjectNotFound}
	}
	return bytes.Clone(data), nil
}

func (s *MemoryStore) Delete(ctx context.Context, objectID string) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Op: OpDelete, ObjectID: objectID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectID]; !ok {
		return &TransportError{Op: OpDelete, ObjectID: objectID, Err: ErrObjectNotFound}
	}
	delete(s.objects, objectID)
	return nil
}

// Overwrite replaces an object's content in place, simulating out-of-band
// remote mutation.
func (s *MemoryStore) Overwrite(objectID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[objectID]; !ok {
		return ErrObjectNotFound
	}
	s.objects[objectID] = bytes.Clone(data)
	return nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
