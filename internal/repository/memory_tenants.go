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

// MemoryTenantsRepo supports admin tenants management when DB is disabled.
// NOTE: This is "platform-level" data (not per-tenant).
type MemoryTenantsRepo struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant // tenantID -> Tenant
}

func NewMemoryTenantsRepo() *MemoryTenantsRepo {
	return &MemoryTenantsRepo{
		tenants: map[string]domain.Tenant{},
	}
}

var _ TenantsRepository = (*MemoryTenantsRepo)(nil)

func (r *MemoryTenantsRepo) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}
	return &t, nil
}

func (r *MemoryTenantsRepo) GetTenantByDomain(_ context.Context, domainName string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.Domain == domainName {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
}

func (r *MemoryTenantsRepo) ListTenants(_ context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.TenantName), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TenantName < all[j].TenantName
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

	out := make([]*domain.Tenant, 0, end-start)
	for i := start; i < end; i++ {
		t := all[i]
		out = append(out, &t)
	}
	return out, total, nil
}

func (r *MemoryTenantsRepo) CreateTenant(_ context.Context, tenant *domain.Tenant) (string, error) {
	if tenant == nil || tenant.TenantName == "" {
		return "", fmt.Errorf("tenant_name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := *tenant
	t.TenantID = uuid.NewString()
	if t.Status == "" {
		t.Status = "active"
	}
	r.tenants[t.TenantID] = t
	return t.TenantID, nil
}

func (r *MemoryTenantsRepo) UpdateTenant(_ context.Context, tenantID string, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tenants[tenantID]
	if !ok {
		// create-on-update for dev convenience
		t = domain.Tenant{TenantID: tenantID, Status: "active"}
	}
	if tenant.TenantName != "" {
		t.TenantName = tenant.TenantName
	}
	if tenant.Domain != "" {
		t.Domain = tenant.Domain
	}
	if tenant.Status != "" {
		t.Status = tenant.Status
	}
	if len(tenant.Metadata) > 0 {
		t.Metadata = tenant.Metadata
	}
	r.tenants[tenantID] = t
	return nil
}

func (r *MemoryTenantsRepo) SetTenantStatus(_ context.Context, tenantID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		// create placeholder for dev convenience
		t = domain.Tenant{TenantID: tenantID}
	}
	t.Status = status
	r.tenants[tenantID] = t
	return nil
}

func (r *MemoryTenantsRepo) DeleteTenant(ctx context.Context, tenantID string) error {
	return r.SetTenantStatus(ctx, tenantID, "deleted")
}

func (r *MemoryTenantsRepo) GetAimsConfig(_ context.Context, tenantID string) (*domain.AimsConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant not found: %w", sql.ErrNoRows)
	}
	return &domain.AimsConfig{
		TenantID:          t.TenantID,
		BaseURL:           t.AimsBaseURL,
		Cluster:           t.AimsCluster,
		Username:          t.AimsUsername,
		EncryptedPassword: t.AimsPasswordEnc,
	}, nil
}

func (r *MemoryTenantsRepo) UpdateAimsConfig(_ context.Context, tenantID string, cfg *domain.AimsConfig) error {
	if cfg == nil {
		return fmt.Errorf("aims config is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return fmt.Errorf("tenant not found: tenant_id '%s' does not exist", tenantID)
	}
	t.AimsBaseURL = cfg.BaseURL
	t.AimsCluster = cfg.Cluster
	t.AimsUsername = cfg.Username
	t.AimsPasswordEnc = cfg.EncryptedPassword
	r.tenants[tenantID] = t
	return nil
}
