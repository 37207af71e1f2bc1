package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// SyncHistoryRepository is an in-memory repository.SyncHistoryStore.
type SyncHistoryRepository struct {
	history map[string]*models.SyncHistory
	order   []string
	mu      sync.RWMutex
}

// NewSyncHistoryRepository creates a new in-memory sync history repository
func NewSyncHistoryRepository() *SyncHistoryRepository {
	return &SyncHistoryRepository{
		history: make(map[string]*models.SyncHistory),
	}
}

// CreateSyncHistory creates a new sync history record
func (r *SyncHistoryRepository) CreateSyncHistory(ctx context.Context, history *models.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if history.ID == "" {
		return fmt.Errorf("sync history id is required")
	}
	if _, exists := r.history[history.ID]; exists {
		return fmt.Errorf("sync history %s already exists", history.ID)
	}
	copied := *history
	r.history[history.ID] = &copied
	r.order = append(r.order, history.ID)
	return nil
}

// UpdateSyncHistory updates a sync history record
func (r *SyncHistoryRepository) UpdateSyncHistory(ctx context.Context, history *models.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.history[history.ID]; !exists {
		return repository.ErrSyncHistoryNotFound
	}
	copied := *history
	r.history[history.ID] = &copied
	return nil
}

// GetLatestSyncHistory gets the most recent run for a company and server
func (r *SyncHistoryRepository) GetLatestSyncHistory(ctx context.Context, companyID, serverID int64) (*models.SyncHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.SyncHistory
	for _, h := range r.history {
		if h.CompanyID != companyID || h.ServerID != serverID {
			continue
		}
		if latest == nil || h.StartTime.After(latest.StartTime) {
			latest = h
		}
	}
	if latest == nil {
		return nil, repository.ErrSyncHistoryNotFound
	}
	copied := *latest
	return &copied, nil
}

// ListSyncHistory lists runs for a company, newest first
func (r *SyncHistoryRepository) ListSyncHistory(ctx context.Context, companyID int64, limit int) ([]*models.SyncHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.SyncHistory
	for _, id := range r.order {
		if h := r.history[id]; h.CompanyID == companyID {
			copied := *h
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
