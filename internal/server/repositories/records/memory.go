package records

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-memory Repository used by tests
// and throwaway runs. State is lost on process exit.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.FileRecord // keyed by record id
	active  map[string]string             // active name -> record id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*models.FileRecord),
		active:  make(map[string]string),
	}
}

func (r *MemoryRepository) Save(ctx context.Context, rec *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = models.StatusActive

	if id, ok := r.active[rec.Name]; ok {
		existing := r.records[id]
		existing.Digest = rec.Digest
		existing.ObjectID = rec.ObjectID
		existing.SizeBytes = rec.SizeBytes
		existing.CreatedAt = rec.CreatedAt
		*rec = *existing
		return nil
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	stored := *rec
	r.records[rec.ID] = &stored
	r.active[rec.Name] = rec.ID
	return nil
}

func (r *MemoryRepository) GetByName(ctx context.Context, name string) (*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec := *r.records[id]
	return &rec, nil
}

func (r *MemoryRepository) ListActive(ctx context.Context) ([]*models.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectLocked(func(rec *models.FileRecord) bool {
		return rec.Status == models.StatusActive
	}), nil
}

func (r *MemoryRepository) SoftDelete(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[name]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	rec := r.records[id]
	rec.Status = models.StatusDeleted
	rec.DeletedAt = &now
	delete(r.active, name)
	return true, nil
}

func (r *MemoryRepository) RecordVerification(ctx context.Context, name string, outcome string, trustScore int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.active[name]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	rec := r.records[id]
	rec.LastVerifiedAt = &now
	rec.LastTrustScore = trustScore
	rec.VerifyCount++
	return true, nil
}

func (r *MemoryRepository) Search(ctx context.Context, query string) ([]*models.FileRecord, error) {
	q := strings.ToLower(query)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectLocked(func(rec *models.FileRecord) bool {
		return rec.Status == models.StatusActive &&
			(strings.Contains(strings.ToLower(rec.Name), q) || strings.Contains(strings.ToLower(rec.Digest), q))
	}), nil
}

func (r *MemoryRepository) Stats(ctx context.Context) (*models.StorageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &models.StorageStats{}
	for _, rec := range r.records {
		switch rec.Status {
		case models.StatusActive:
			stats.ActiveCount++
			stats.TotalActiveBytes += rec.SizeBytes
		case models.StatusDeleted:
			stats.DeletedCount++
		}
	}
	return stats, nil
}

func (r *MemoryRepository) collectLocked(keep func(*models.FileRecord) bool) []*models.FileRecord {
	var result []*models.FileRecord
	for _, rec := range r.records {
		if keep(rec) {
			copied := *rec
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
