package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/internal/types"
)

// MemoryStore keeps analyses in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.AnalysisRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Save stores a copy of the record, assigning an ID and timestamp when missing.
func (s *MemoryStore) Save(ctx context.Context, record models.AnalysisRecord) (models.AnalysisRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	return record, nil
}

// ListByUser returns the newest records for userID first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	s.mu.RLock()
	out := make([]models.AnalysisRecord, 0)
	for _, r := range s.records {
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() {}

var _ types.HistoryStore = (*MemoryStore)(nil)
