package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
)

// MemorySettingsRepo supports tenant settings when DB is disabled.
type MemorySettingsRepo struct {
	mu       sync.RWMutex
	settings map[string]json.RawMessage // tenantID + "/" + key -> value
}

func NewMemorySettingsRepo() *MemorySettingsRepo {
	return &MemorySettingsRepo{
		settings: map[string]json.RawMessage{},
	}
}

var _ SettingsRepository = (*MemorySettingsRepo)(nil)

func (r *MemorySettingsRepo) GetSetting(_ context.Context, tenantID, key string) (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.settings[tenantID+"/"+key]
	if !ok {
		return nil, fmt.Errorf("setting not found: %w", sql.ErrNoRows)
	}
	return v, nil
}

func (r *MemorySettingsRepo) SaveSetting(_ context.Context, tenantID, key string, value json.RawMessage) error {
	if len(value) == 0 {
		return fmt.Errorf("setting value is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[tenantID+"/"+key] = value
	return nil
}
