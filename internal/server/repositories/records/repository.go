// Package records persists FileRecord metadata. Three interchangeable
// backends implement the same Repository contract: PostgreSQL for external
// deployments, bbolt for a single-binary embedded store, and an in-memory
// map for tests and throwaway runs.
package records

import (
	"context"

	"github.com/akulikov/driveguard/internal/server/models"
)

type Repository interface {
	// Save inserts the record, or, when an active record with the same
	// name exists, replaces its digest, object id, size and created-at in
	// place. Verification counters survive a re-upload. The stored
	// record's ID is written back into rec.
	Save(ctx context.Context, rec *models.FileRecord) error

	// GetByName returns the active record with the given name, or
	// common.ErrorNotFound. Soft-deleted records are invisible here.
	GetByName(ctx context.Context, name string) (*models.FileRecord, error)

	// ListActive returns all active records ordered by creation time,
	// newest first.
	ListActive(ctx context.Context) ([]*models.FileRecord, error)

	// SoftDelete transitions an active record to deleted and sets its
	// deletion time. Returns false, without error, when no active record
	// with that name exists.
	SoftDelete(ctx context.Context, name string) (bool, error)

	// RecordVerification sets the last-verified time and trust score and
	// increments the verify counter, atomically with respect to other
	// writers on the same record. Returns false when the named active
	// record does not exist.
	RecordVerification(ctx context.Context, name string, outcome string, trustScore int) (bool, error)

	// Search returns active records whose name or digest contains query,
	// case-insensitively.
	Search(ctx context.Context, query string) ([]*models.FileRecord, error)

	// Stats aggregates active/deleted counts and total active bytes.
	Stats(ctx context.Context) (*models.StorageStats, error)
}
