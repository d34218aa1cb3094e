package repository

import (
	"context"
	"encoding/json"
)

// SettingsRepository 租户设置Repository接口
// key -> JSONB value，AIMS article format 等租户级配置的持久化层
type SettingsRepository interface {
	// GetSetting 读取设置值；键不存在时返回包装后的 sql.ErrNoRows
	GetSetting(ctx context.Context, tenantID, key string) (json.RawMessage, error)

	// SaveSetting 写入设置值（upsert）
	SaveSetting(ctx context.Context, tenantID, key string, value json.RawMessage) error
}
