package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	content := []byte("some payload")
	id, err := s.Put(ctx, bytes.NewReader(content))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Returned slice is a copy; mutating it must not affect the store.
	got[0] = 'X'
	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, again)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OpFetch, te.Op)
	assert.Equal(t, "nope", te.ObjectID)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Put(ctx, bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.Equal(t, 0, s.Len())

	err = s.Delete(ctx, id)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OpDelete, te.Op)
}

func TestMemoryStore_Overwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Put(ctx, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	require.NoError(t, s.Overwrite(id, []byte("hellx")))
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hellx"), got)

	assert.ErrorIs(t, s.Overwrite("missing", nil), ErrObjectNotFound)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Put(ctx, bytes.NewReader([]byte("x")))
	assert.Error(t, err)

	_, err = s.Get(ctx, "any")
	assert.Error(t, err)

	assert.Error(t, s.Delete(ctx, "any"))
}
