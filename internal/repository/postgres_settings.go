package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresSettingsRepository 租户设置Repository实现
type PostgresSettingsRepository struct {
	db *sql.DB
}

// NewPostgresSettingsRepository 创建租户设置Repository
func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// 确保实现了接口
var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

// GetSetting 读取设置值；键不存在时返回包装后的 sql.ErrNoRows
func (r *PostgresSettingsRepository) GetSetting(ctx context.Context, tenantID, key string) (json.RawMessage, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if key == "" {
		return nil, fmt.Errorf("setting key is required")
	}

	var value json.RawMessage
	err := r.db.QueryRowContext(ctx,
		`SELECT setting_value FROM tenant_settings WHERE tenant_id = $1::uuid AND setting_key = $2`,
		tenantID, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("setting not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

// SaveSetting 写入设置值（upsert）
func (r *PostgresSettingsRepository) SaveSetting(ctx context.Context, tenantID, key string, value json.RawMessage) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	if len(value) == 0 {
		return fmt.Errorf("setting value is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_settings (tenant_id, setting_key, setting_value, updated_at)
		 VALUES ($1::uuid, $2, $3::jsonb, NOW())
		 ON CONFLICT (tenant_id, setting_key)
		 DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = NOW()`,
		tenantID, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	return nil
}
