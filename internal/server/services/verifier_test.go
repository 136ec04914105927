package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/digest"
	"github.com/akulikov/driveguard/internal/logging"
	"github.com/akulikov/driveguard/internal/server/blob"
	"github.com/akulikov/driveguard/internal/server/models"
	"github.com/akulikov/driveguard/internal/server/repositories/records"
)

func newTestVerifier(t *testing.T) (*Verifier, *records.MemoryRepository, *blob.MemoryStore) {
	t.Helper()

	repo := records.NewMemoryRepository()
	store := blob.NewMemoryStore()
	engine, err := digest.New(digest.AlgSHA256)
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))

	return NewVerifier(repo, store, engine, logger, 0, 2), repo, store
}

func upload(t *testing.T, v *Verifier, name, content string) *models.FileRecord {
	t.Helper()
	rec, err := v.Upload(context.Background(), name, strings.NewReader(content))
	require.NoError(t, err)
	return rec
}

func TestUpload_RecordsDigestAndSize(t *testing.T) {
	v, _, store := newTestVerifier(t)

	rec := upload(t, v, "a.txt", "hello")

	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", rec.Digest)
	assert.Equal(t, int64(5), rec.SizeBytes)
	assert.Equal(t, models.StatusActive, rec.Status)
	assert.NotEmpty(t, rec.ObjectID)
	assert.Equal(t, 1, store.Len())
}

func TestUpload_EmptyNameRejected(t *testing.T) {
	v, _, store := newTestVerifier(t)

	_, err := v.Upload(context.Background(), "   ", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrorEmptyName)
	assert.Equal(t, 0, store.Len(), "no blob stored on validation failure")
}

func TestUpload_OversizedRejected(t *testing.T) {
	repo := records.NewMemoryRepository()
	store := blob.NewMemoryStore()
	engine, err := digest.New("")
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	v := NewVerifier(repo, store, engine, logger, 8, 1)

	_, err = v.Upload(context.Background(), "big.bin", strings.NewReader("123456789"))
	assert.ErrorIs(t, err, common.ErrorFileTooLarge)
	assert.Equal(t, 0, store.Len())
}

type failingPutStore struct {
	blob.Store
}

func (failingPutStore) Put(ctx context.Context, src io.Reader) (string, error) {
	return "", &blob.TransportError{Op: blob.OpStore, Err: errors.New("remote unreachable")}
}

func TestUpload_TransportFailureWritesNoMetadata(t *testing.T) {
	repo := records.NewMemoryRepository()
	engine, err := digest.New("")
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	v := NewVerifier(repo, failingPutStore{}, engine, logger, 0, 1)

	_, err = v.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	var te *blob.TransportError
	require.True(t, errors.As(err, &te))

	list, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "no orphaned record")
}

func TestVerify_RoundTripIntact(t *testing.T) {
	v, repo, _ := newTestVerifier(t)
	ctx := context.Background()

	upload(t, v, "a.txt", "hello")

	res, err := v.Verify(ctx, "a.txt")
	require.NoError(t, err)

	assert.True(t, res.Intact)
	assert.Equal(t, 100, res.TrustScore)
	assert.Equal(t, res.OriginalDigest, res.CurrentDigest)
	assert.Equal(t, int64(5), res.SizeBytes)

	rec, err := repo.GetByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.VerifyCount)
	assert.Equal(t, 100, rec.LastTrustScore)
	require.NotNil(t, rec.LastVerifiedAt)
}

func TestVerify_TamperDetection(t *testing.T) {
	v, repo, store := newTestVerifier(t)
	ctx := context.Background()

	rec := upload(t, v, "a.txt", "hello")

	res, err := v.Verify(ctx, "a.txt")
	require.NoError(t, err)
	require.True(t, res.Intact)

	// Out-of-band remote corruption.
	require.NoError(t, store.Overwrite(rec.ObjectID, []byte("hellx")))

	res, err = v.Verify(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, res.Intact)
	assert.Equal(t, 0, res.TrustScore)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", res.OriginalDigest)
	assert.NotEqual(t, res.OriginalDigest, res.CurrentDigest)

	stored, err := repo.GetByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.VerifyCount)
	assert.Equal(t, 0, stored.LastTrustScore)
}

func TestVerify_NotFound(t *testing.T) {
	v, _, _ := newTestVerifier(t)

	_, err := v.Verify(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestVerify_TransportErrorDoesNotTouchCounters(t *testing.T) {
	v, repo, store := newTestVerifier(t)
	ctx := context.Background()

	rec := upload(t, v, "a.txt", "hello")
	require.NoError(t, store.Delete(ctx, rec.ObjectID))

	_, err := v.Verify(ctx, "a.txt")
	var te *blob.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, blob.OpFetch, te.Op)

	stored, err := repo.GetByName(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.VerifyCount, "failed fetch is not a verification attempt")
}

func TestReupload_SingleActiveRecord(t *testing.T) {
	v, repo, _ := newTestVerifier(t)
	ctx := context.Background()

	upload(t, v, "a.txt", "first version")
	second := upload(t, v, "a.txt", "second version")

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.Digest, list[0].Digest)

	res, err := v.Verify(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, res.Intact, "verify must check against the latest upload's digest")
}

func TestDelete_Semantics(t *testing.T) {
	v, _, store := newTestVerifier(t)
	ctx := context.Background()

	upload(t, v, "a.txt", "hello")

	require.NoError(t, v.Delete(ctx, "a.txt"))
	assert.Equal(t, 0, store.Len(), "remote blob removed")

	_, err := v.Verify(ctx, "a.txt")
	assert.ErrorIs(t, err, common.ErrorNotFound, "deleted files are not verifiable")

	list, err := v.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, v.Delete(ctx, "a.txt"), common.ErrorNotFound)
}

type failingDeleteStore struct {
	blob.Store
}

func (s failingDeleteStore) Delete(ctx context.Context, objectID string) error {
	return &blob.TransportError{Op: blob.OpDelete, ObjectID: objectID, Err: errors.New("access denied")}
}

func TestDelete_RemoteFailureLeavesRecordActive(t *testing.T) {
	repo := records.NewMemoryRepository()
	inner := blob.NewMemoryStore()
	engine, err := digest.New("")
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	v := NewVerifier(repo, failingDeleteStore{Store: inner}, engine, logger, 0, 1)

	_, err = v.Upload(context.Background(), "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	err = v.Delete(context.Background(), "a.txt")
	var te *blob.TransportError
	require.True(t, errors.As(err, &te))

	rec, err := repo.GetByName(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, rec.Status, "record must stay active when remote delete fails")
}

func TestVerifyAll_MixedOutcomes(t *testing.T) {
	v, _, store := newTestVerifier(t)
	ctx := context.Background()

	upload(t, v, "good1.txt", "alpha")
	upload(t, v, "good2.txt", "beta")
	bad := upload(t, v, "bad.txt", "gamma")
	missing := upload(t, v, "missing.txt", "delta")

	require.NoError(t, store.Overwrite(bad.ObjectID, []byte("GAMMA")))
	require.NoError(t, store.Delete(ctx, missing.ObjectID))

	batch, err := v.VerifyAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.VerifiedCount)
	assert.Equal(t, 1, batch.TamperedCount)
	assert.Equal(t, 1, batch.FailedCount)
	assert.InDelta(t, 100.0*2/3, batch.SecurityPercentage, 0.01)
	assert.Len(t, batch.Results, 4)

	byName := make(map[string]models.BatchItem)
	for _, item := range batch.Results {
		byName[item.Name] = item
	}
	assert.True(t, byName["good1.txt"].Result.Intact)
	assert.False(t, byName["bad.txt"].Result.Intact)
	assert.NotEmpty(t, byName["missing.txt"].Error)
}

func TestVerifyAll_EmptyStore(t *testing.T) {
	v, _, _ := newTestVerifier(t)

	batch, err := v.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, batch.SecurityPercentage, "no division by zero")
	assert.Empty(t, batch.Results)
}

func TestVerifyAll_AllTampered(t *testing.T) {
	v, _, store := newTestVerifier(t)
	ctx := context.Background()

	rec := upload(t, v, "a.txt", "content")
	require.NoError(t, store.Overwrite(rec.ObjectID, []byte("tampered")))

	batch, err := v.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.VerifiedCount)
	assert.Equal(t, 1, batch.TamperedCount)
	assert.Zero(t, batch.SecurityPercentage)
}

func TestVerifyAll_ManyFilesBoundedWorkers(t *testing.T) {
	v, _, _ := newTestVerifier(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		upload(t, v, fmt.Sprintf("file-%02d.txt", i), fmt.Sprintf("content %d", i))
	}

	batch, err := v.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, batch.VerifiedCount)
	assert.InDelta(t, 100.0, batch.SecurityPercentage, 0.01)
}

// slowGetStore blocks Get until released, so a cancellation can be staged
// deterministically.
type slowGetStore struct {
	blob.Store
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func (s *slowGetStore) Get(ctx context.Context, objectID string) ([]byte, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return s.Store.Get(ctx, objectID)
	case <-ctx.Done():
		return nil, &blob.TransportError{Op: blob.OpFetch, ObjectID: objectID, Err: ctx.Err()}
	}
}

func TestVerify_CancelledBeforeStatsUpdate(t *testing.T) {
	repo := records.NewMemoryRepository()
	inner := blob.NewMemoryStore()
	slow := &slowGetStore{Store: inner, release: make(chan struct{}), started: make(chan struct{})}
	engine, err := digest.New("")
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	v := NewVerifier(repo, slow, engine, logger, 0, 1)

	_, err = v.Upload(context.Background(), "a.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := v.Verify(ctx, "a.txt")
		done <- err
	}()

	<-slow.started
	cancel()
	require.Error(t, <-done)

	rec, err := repo.GetByName(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.VerifyCount, "cancelled verify must not update counters")
}
