package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/filex"
	"github.com/akulikov/driveguard/internal/server/models"
)

var (
	recordsBucket = []byte("records")
	namesBucket   = []byte("names")
)

// BoltRepository is an embedded, single-file implementation of Repository
// backed by bbolt. Records are stored as JSON keyed by record id; an index
// bucket maps each active name to its record id, so soft-deleted records
// never shadow a later re-upload of the same name.
//
// Every mutation runs inside one bolt write transaction, which makes the
// verify-count increment atomic per record.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository opens (creating if needed) the bolt file at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	path, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(namesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Close closes the underlying bolt file.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

func (r *BoltRepository) Save(ctx context.Context, rec *models.FileRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = models.StatusActive

	return r.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(namesBucket)
		recs := tx.Bucket(recordsBucket)

		if id := names.Get([]byte(rec.Name)); id != nil {
			// Re-upload: replace content fields in place, keep the
			// verification counters of the existing active record.
			existing, err := decodeRecord(recs.Get(id))
			if err != nil {
				return err
			}
			existing.Digest = rec.Digest
			existing.ObjectID = rec.ObjectID
			existing.SizeBytes = rec.SizeBytes
			existing.CreatedAt = rec.CreatedAt
			*rec = *existing
			return putRecord(recs, existing)
		}

		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := putRecord(recs, rec); err != nil {
			return err
		}
		return names.Put([]byte(rec.Name), []byte(rec.ID))
	})
}

func (r *BoltRepository) GetByName(ctx context.Context, name string) (*models.FileRecord, error) {
	var rec *models.FileRecord

	err := r.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(namesBucket).Get([]byte(name))
		if id == nil {
			return common.ErrorNotFound
		}
		var err error
		rec, err = decodeRecord(tx.Bucket(recordsBucket).Get(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *BoltRepository) ListActive(ctx context.Context) ([]*models.FileRecord, error) {
	result, err := r.collect(func(rec *models.FileRecord) bool {
		return rec.Status == models.StatusActive
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BoltRepository) SoftDelete(ctx context.Context, name string) (bool, error) {
	deleted := false

	err := r.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(namesBucket)
		id := names.Get([]byte(name))
		if id == nil {
			return nil
		}

		recs := tx.Bucket(recordsBucket)
		rec, err := decodeRecord(recs.Get(id))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rec.Status = models.StatusDeleted
		rec.DeletedAt = &now
		if err := putRecord(recs, rec); err != nil {
			return err
		}
		if err := names.Delete([]byte(name)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

func (r *BoltRepository) RecordVerification(ctx context.Context, name string, outcome string, trustScore int) (bool, error) {
	updated := false

	err := r.db.Update(func(tx *bolt.Tx) error {
		id := tx.Bucket(namesBucket).Get([]byte(name))
		if id == nil {
			return nil
		}

		recs := tx.Bucket(recordsBucket)
		rec, err := decodeRecord(recs.Get(id))
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rec.LastVerifiedAt = &now
		rec.LastTrustScore = trustScore
		rec.VerifyCount++
		if err := putRecord(recs, rec); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}

func (r *BoltRepository) Search(ctx context.Context, query string) ([]*models.FileRecord, error) {
	q := strings.ToLower(query)
	result, err := r.collect(func(rec *models.FileRecord) bool {
		return rec.Status == models.StatusActive &&
			(strings.Contains(strings.ToLower(rec.Name), q) || strings.Contains(strings.ToLower(rec.Digest), q))
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BoltRepository) Stats(ctx context.Context) (*models.StorageStats, error) {
	stats := &models.StorageStats{}

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			switch rec.Status {
			case models.StatusActive:
				stats.ActiveCount++
				stats.TotalActiveBytes += rec.SizeBytes
			case models.StatusDeleted:
				stats.DeletedCount++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *BoltRepository) collect(keep func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	var result []*models.FileRecord

	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			if keep(rec) {
				result = append(result, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func putRecord(b *bolt.Bucket, rec *models.FileRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(rec.ID), encoded)
}

func decodeRecord(data []byte) (*models.FileRecord, error) {
	if data == nil {
		return nil, common.ErrorNotFound
	}
	var rec models.FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
