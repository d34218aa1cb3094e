package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// MemoryStoresRepo supports store management when DB is disabled.
type MemoryStoresRepo struct {
	mu     sync.RWMutex
	stores map[string]domain.Store // storeID -> Store
}

func NewMemoryStoresRepo() *MemoryStoresRepo {
	return &MemoryStoresRepo{
		stores: map[string]domain.Store{},
	}
}

var _ StoresRepository = (*MemoryStoresRepo)(nil)

func (r *MemoryStoresRepo) GetStore(_ context.Context, storeID string) (*domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[storeID]
	if !ok {
		return nil, fmt.Errorf("store not found: %w", sql.ErrNoRows)
	}
	return &s, nil
}

func (r *MemoryStoresRepo) ListStores(_ context.Context, tenantID string, page, size int) ([]*domain.Store, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Store, 0, len(r.stores))
	for _, s := range r.stores {
		if s.TenantID != tenantID {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StoreName < all[j].StoreName
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	out := make([]*domain.Store, 0, end-start)
	for i := start; i < end; i++ {
		s := all[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func (r *MemoryStoresRepo) CreateStore(_ context.Context, store *domain.Store) (string, error) {
	if store == nil || store.TenantID == "" || store.StoreCode == "" || store.StoreName == "" {
		return "", fmt.Errorf("tenant_id, store_code and store_name are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := *store
	s.StoreID = uuid.NewString()
	if s.Status == "" {
		s.Status = "active"
	}
	r.stores[s.StoreID] = s
	return s.StoreID, nil
}

func (r *MemoryStoresRepo) UpdateStore(_ context.Context, storeID string, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[storeID]
	if !ok {
		return fmt.Errorf("store not found: store_id '%s' does not exist", storeID)
	}
	if store.StoreCode != "" {
		s.StoreCode = store.StoreCode
	}
	if store.StoreName != "" {
		s.StoreName = store.StoreName
	}
	if store.Status != "" {
		s.Status = store.Status
	}
	r.stores[storeID] = s
	return nil
}
