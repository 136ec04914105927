package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/dbx"
	"github.com/akulikov/driveguard/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, name, digest, object_id, size_bytes, status, created_at, last_verified_at, last_trust_score, verify_count, deleted_at`

// Save upserts a record keyed by name, scoped to active records. The
// partial unique index file_records_active_name_idx backs the conflict
// target, so a soft-deleted record with the same name never collides.
func (r *PostgresRepository) Save(ctx context.Context, rec *models.FileRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = models.StatusActive

	query := `
		INSERT INTO file_records (id, name, digest, object_id, size_bytes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) WHERE status = 'active'
		DO UPDATE SET
			digest = EXCLUDED.digest,
			object_id = EXCLUDED.object_id,
			size_bytes = EXCLUDED.size_bytes,
			created_at = EXCLUDED.created_at
		RETURNING id;
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Name, rec.Digest, rec.ObjectID, rec.SizeBytes, rec.Status, rec.CreatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rec.ID = id
	return nil
}

// GetByName returns the active record only; deleted records are invisible.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM file_records WHERE name = $1 AND status = 'active'`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return rec, nil
}

// ListActive returns active records, newest first.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.FileRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM file_records WHERE status = 'active' ORDER BY created_at DESC`
	return r.queryRecords(ctx, query)
}

// SoftDelete marks an active record deleted. Returns false when nothing
// matched, which is a no-op signal rather than an error.
func (r *PostgresRepository) SoftDelete(ctx context.Context, name string) (bool, error) {
	query := `UPDATE file_records SET status = 'deleted', deleted_at = now() WHERE name = $1 AND status = 'active'`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return false, fmt.Errorf("failed to soft delete: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra > 0, nil
}

// RecordVerification updates verification state in a single UPDATE, so the
// verify_count increment cannot lose updates under concurrent verifies.
func (r *PostgresRepository) RecordVerification(ctx context.Context, name string, outcome string, trustScore int) (bool, error) {
	query := `
		UPDATE file_records
		SET last_verified_at = now(), last_trust_score = $2, verify_count = verify_count + 1
		WHERE name = $1 AND status = 'active'
	`
	result, err := r.db.ExecContext(ctx, query, name, trustScore)
	if err != nil {
		return false, fmt.Errorf("failed to record verification: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra > 0, nil
}

// Search matches name or digest case-insensitively against a substring.
func (r *PostgresRepository) Search(ctx context.Context, query string) ([]*models.FileRecord, error) {
	q := `
		SELECT ` + recordColumns + ` FROM file_records
		WHERE status = 'active' AND (name ILIKE '%' || $1 || '%' OR digest ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
	`
	return r.queryRecords(ctx, q, query)
}

// Stats aggregates store-side; no record content is pulled into memory.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.StorageStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'deleted'),
			COALESCE(SUM(size_bytes) FILTER (WHERE status = 'active'), 0)
		FROM file_records
	`
	stats := &models.StorageStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.ActiveCount, &stats.DeletedCount, &stats.TotalActiveBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.FileRecord, error) {
	var rec models.FileRecord
	var lastVerified, deletedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.Name, &rec.Digest, &rec.ObjectID, &rec.SizeBytes,
		&rec.Status, &rec.CreatedAt, &lastVerified, &rec.LastTrustScore, &rec.VerifyCount, &deletedAt)
	if err != nil {
		return nil, err
	}
	if lastVerified.Valid {
		rec.LastVerifiedAt = &lastVerified.Time
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}
	return &rec, nil
}
