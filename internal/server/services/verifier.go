// Package services implements the verification protocol: the contract
// between what was hashed at upload time and what is hashed at verify
// time.
package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/digest"
	"github.com/akulikov/driveguard/internal/logging"
	"github.com/akulikov/driveguard/internal/server/blob"
	"github.com/akulikov/driveguard/internal/server/metrics"
	"github.com/akulikov/driveguard/internal/server/models"
	"github.com/akulikov/driveguard/internal/server/repositories/records"
)

const (
	defaultMaxUploadSize = 16 << 20 // 16 MiB
	defaultVerifyWorkers = 4
)

// Verifier orchestrates the digest engine, metadata store and blob
// transport. It never caches records across calls; every operation
// re-reads the state needed for its decision.
type Verifier struct {
	records       records.Repository
	blobs         blob.Store
	engine        *digest.Engine
	logger        logging.Logger
	maxUploadSize int64
	workers       int
}

// NewVerifier constructs a Verifier. A zero maxUploadSize or workers value
// selects the default.
func NewVerifier(repo records.Repository, blobs blob.Store, engine *digest.Engine,
	logger logging.Logger, maxUploadSize int64, workers int) *Verifier {

	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	if workers <= 0 {
		workers = defaultVerifyWorkers
	}
	return &Verifier{
		records:       repo,
		blobs:         blobs,
		engine:        engine,
		logger:        logger,
		maxUploadSize: maxUploadSize,
		workers:       workers,
	}
}

// Upload digests src, ships the bytes to the blob store, and persists the
// metadata record. The metadata write is the last step: a failed blob Put
// leaves no record behind, and a cancelled upload never produces a
// partially-written record. If the metadata write fails after the blob is
// stored, the orphaned blob is reported and left for operator attention.
func (v *Verifier) Upload(ctx context.Context, name string, src io.Reader) (*models.FileRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrorEmptyName
	}

	// Digest while buffering: the same bytes are hashed and stored, so
	// the recorded digest is a pure function of the stored content.
	var buf bytes.Buffer
	dgst, err := v.engine.Sum(io.TeeReader(io.LimitReader(src, v.maxUploadSize+1), &buf))
	if err != nil {
		return nil, err
	}
	if int64(buf.Len()) > v.maxUploadSize {
		return nil, common.ErrorFileTooLarge
	}

	size := int64(buf.Len())
	objectID, err := v.blobs.Put(ctx, &buf)
	if err != nil {
		return nil, err
	}

	rec := &models.FileRecord{
		Name:      name,
		Digest:    dgst,
		ObjectID:  objectID,
		SizeBytes: size,
	}

	if err := ctx.Err(); err != nil {
		v.logger.Warn(ctx, "upload cancelled after blob store, object orphaned",
			"name", name, "object_id", objectID)
		return nil, err
	}

	if err := v.records.Save(ctx, rec); err != nil {
		v.logger.Warn(ctx, "metadata write failed after blob store, object orphaned",
			"name", name, "object_id", objectID, "error", err)
		return nil, err
	}

	metrics.UploadsTotal.Inc()
	metrics.UploadedBytesTotal.Add(float64(size))
	v.logger.Info(ctx, "file uploaded", "name", name, "object_id", objectID,
		"size", size, "digest", dgst)
	return rec, nil
}

// Verify re-downloads the named file, re-hashes it and compares against
// the recorded digest. The trust score is binary: any mismatch, however
// small the underlying change, is complete loss of trust.
func (v *Verifier) Verify(ctx context.Context, name string) (*models.VerificationResult, error) {
	rec, err := v.records.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	data, err := v.blobs.Get(ctx, rec.ObjectID)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	current := v.engine.SumBytes(data)
	intact := current == rec.Digest

	outcome := models.OutcomeTampered
	trustScore := 0
	if intact {
		outcome = models.OutcomeSuccess
		trustScore = 100
	}

	// The stats update is the last step, so a cancelled verify never
	// bumps the counters.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ok, err := v.records.RecordVerification(ctx, name, outcome, trustScore)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Deleted out from under us mid-verify; deleted files are not
		// verifiable.
		return nil, common.ErrorNotFound
	}

	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	if intact {
		v.logger.Info(ctx, "verification successful", "name", name, "trust_score", trustScore)
	} else {
		v.logger.Warn(ctx, "file tampering detected", "name", name,
			"original_digest", rec.Digest, "current_digest", current, "size", len(data))
	}

	return &models.VerificationResult{
		Name:           name,
		Intact:         intact,
		TrustScore:     trustScore,
		OriginalDigest: rec.Digest,
		CurrentDigest:  current,
		SizeBytes:      int64(len(data)),
	}, nil
}

// VerifyAll verifies every active file with a bounded worker pool,
// continuing past individual failures. Per-record metadata writes stay
// atomic because each backend guarantees them.
func (v *Verifier) VerifyAll(ctx context.Context) (*models.BatchResult, error) {
	list, err := v.records.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.BatchItem, len(list))

	workers := v.workers
	if workers > len(list) {
		workers = len(list)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				name := list[i].Name
				res, err := v.Verify(ctx, name)
				if err != nil {
					items[i] = models.BatchItem{Name: name, Error: err.Error()}
					continue
				}
				items[i] = models.BatchItem{Name: name, Result: res}
			}
		}()
	}

dispatch:
	for i := range list {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Mark everything not yet dispatched; workers drain the
			// in-flight jobs on their own.
			for j := i; j < len(list); j++ {
				items[j] = models.BatchItem{Name: list[j].Name, Error: ctx.Err().Error()}
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	result := &models.BatchResult{Results: items}
	for _, item := range items {
		switch {
		case item.Result == nil:
			result.FailedCount++
		case item.Result.Intact:
			result.VerifiedCount++
		default:
			result.TamperedCount++
		}
	}
	if checked := result.VerifiedCount + result.TamperedCount; checked > 0 {
		result.SecurityPercentage = float64(result.VerifiedCount) / float64(checked) * 100
	}

	v.logger.Info(ctx, "batch verification finished",
		"verified", result.VerifiedCount, "tampered", result.TamperedCount,
		"failed", result.FailedCount, "security_percentage", result.SecurityPercentage)
	return result, nil
}

// Delete removes the remote blob first and only then soft-deletes the
// metadata record. A failed remote delete leaves the record active, so
// the blob never becomes unreachable while still consuming storage.
func (v *Verifier) Delete(ctx context.Context, name string) error {
	rec, err := v.records.GetByName(ctx, name)
	if err != nil {
		return err
	}

	if err := v.blobs.Delete(ctx, rec.ObjectID); err != nil {
		v.logger.Error(ctx, "remote delete failed, record stays active",
			"name", name, "object_id", rec.ObjectID, "error", err)
		return err
	}

	ok, err := v.records.SoftDelete(ctx, name)
	if err != nil {
		v.logger.Warn(ctx, "blob deleted but metadata update failed",
			"name", name, "object_id", rec.ObjectID, "error", err)
		return err
	}
	if !ok {
		// Already gone; the remote blob is deleted either way.
		v.logger.Warn(ctx, "record vanished during delete", "name", name)
		return nil
	}

	metrics.DeletesTotal.Inc()
	v.logger.Info(ctx, "file deleted", "name", name, "object_id", rec.ObjectID)
	return nil
}

// Get returns the active record with the given name.
func (v *Verifier) Get(ctx context.Context, name string) (*models.FileRecord, error) {
	return v.records.GetByName(ctx, name)
}

// List returns all active records, newest first.
func (v *Verifier) List(ctx context.Context) ([]*models.FileRecord, error) {
	return v.records.ListActive(ctx)
}

// Search returns active records matching the query by name or digest.
func (v *Verifier) Search(ctx context.Context, query string) ([]*models.FileRecord, error) {
	return v.records.Search(ctx, query)
}

// Stats aggregates storage statistics.
func (v *Verifier) Stats(ctx context.Context) (*models.StorageStats, error) {
	return v.records.Stats(ctx)
}
