package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// MemorySpacesRepo supports space management when DB is disabled.
type MemorySpacesRepo struct {
	mu     sync.RWMutex
	spaces map[string]domain.Space // spaceID -> Space
}

func NewMemorySpacesRepo() *MemorySpacesRepo {
	return &MemorySpacesRepo{
		spaces: map[string]domain.Space{},
	}
}

var _ SpacesRepository = (*MemorySpacesRepo)(nil)

func (r *MemorySpacesRepo) GetSpace(_ context.Context, tenantID, spaceID string) (*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.spaces[spaceID]
	if !ok || s.TenantID != tenantID {
		return nil, fmt.Errorf("space not found: %w", sql.ErrNoRows)
	}
	return &s, nil
}

func (r *MemorySpacesRepo) listByStore(storeID string, filter SpaceFilters) []domain.Space {
	all := make([]domain.Space, 0, len(r.spaces))
	for _, s := range r.spaces {
		if s.StoreID != storeID {
			continue
		}
		if filter.SpaceType != "" && s.SpaceType != filter.SpaceType {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.SpaceName), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].SpaceCode < all[j].SpaceCode
	})
	return all
}

func (r *MemorySpacesRepo) ListSpaces(_ context.Context, storeID string, filter SpaceFilters, page, size int) ([]*domain.Space, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.listByStore(storeID, filter)
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

	out := make([]*domain.Space, 0, end-start)
	for i := start; i < end; i++ {
		s := all[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func (r *MemorySpacesRepo) ListAllSpaces(_ context.Context, storeID string) ([]*domain.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.listByStore(storeID, SpaceFilters{})
	out := make([]*domain.Space, 0, len(all))
	for i := range all {
		s := all[i]
		out = append(out, &s)
	}
	return out, nil
}

func (r *MemorySpacesRepo) CreateSpace(_ context.Context, space *domain.Space) (string, error) {
	if space == nil || space.TenantID == "" || space.StoreID == "" || space.SpaceCode == "" {
		return "", fmt.Errorf("tenant_id, store_id and space_code are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := *space
	s.SpaceID = uuid.NewString()
	if s.Capacity <= 0 {
		s.Capacity = 1
	}
	r.spaces[s.SpaceID] = s
	return s.SpaceID, nil
}

func (r *MemorySpacesRepo) UpdateSpace(_ context.Context, tenantID, spaceID string, space *domain.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spaces[spaceID]
	if !ok || s.TenantID != tenantID {
		return fmt.Errorf("space not found: space_id '%s' does not exist", spaceID)
	}
	if space.SpaceCode != "" {
		s.SpaceCode = space.SpaceCode
	}
	if space.SpaceName != "" {
		s.SpaceName = space.SpaceName
	}
	if space.SpaceType != "" {
		s.SpaceType = space.SpaceType
	}
	if space.Capacity > 0 {
		s.Capacity = space.Capacity
	}
	// occupant/label follow the update verbatim (empty clears the binding)
	s.OccupantName = space.OccupantName
	s.LabelCode = space.LabelCode
	r.spaces[spaceID] = s
	return nil
}

func (r *MemorySpacesRepo) DeleteSpace(_ context.Context, tenantID, spaceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.spaces[spaceID]
	if !ok || s.TenantID != tenantID {
		return fmt.Errorf("space not found: space_id '%s' does not exist", spaceID)
	}
	delete(r.spaces, spaceID)
	return nil
}
