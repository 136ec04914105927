// Package models defines the data models persisted in the metadata store.
package models

import "time"

// Record lifecycle statuses.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Verification outcomes passed to RecordVerification.
const (
	OutcomeSuccess  = "success"
	OutcomeTampered = "tampered"
)

// FileRecord is the unit of tracked state: one logical file name mapped to
// a remote blob and the digest its content had at upload time.
type FileRecord struct {
	// ID is the record's storage identity.
	ID string `json:"id"`
	// Name is the external identifier users reference. Unique among
	// non-deleted records.
	Name string `json:"name"`
	// Digest is the hex digest of the content at upload time. Never
	// mutated after Save; only a full re-upload replaces it.
	Digest string `json:"digest"`
	// ObjectID is the opaque handle returned by the blob transport.
	ObjectID string `json:"object_id"`
	// SizeBytes is the content size at upload time.
	SizeBytes int64 `json:"size_bytes"`
	// Status is either StatusActive or StatusDeleted.
	Status string `json:"status"`
	// CreatedAt is set at store time.
	CreatedAt time.Time `json:"created_at"`
	// LastVerifiedAt is set on every verify attempt, success or failure.
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	// LastTrustScore is 100 iff the most recent verify matched, else 0.
	// Meaningful only once LastVerifiedAt is set.
	LastTrustScore int `json:"last_trust_score"`
	// VerifyCount is incremented on every verify attempt regardless of
	// outcome. Never reset, including by soft delete.
	VerifyCount int64 `json:"verify_count"`
	// DeletedAt is set when the record transitions to StatusDeleted.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// StorageStats aggregates over all records.
type StorageStats struct {
	ActiveCount      int64 `json:"active_count"`
	DeletedCount     int64 `json:"deleted_count"`
	TotalActiveBytes int64 `json:"total_active_bytes"`
}
