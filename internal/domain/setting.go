package domain

import (
	"encoding/json"
	"time"
)

// 租户设置键
const (
	// SettingKeyArticleFormat AIMS article format 的持久化键（厂家侧字段结构定义）
	SettingKeyArticleFormat = "solumArticleFormat"
)

// TenantSetting 租户级设置（对应 tenant_settings 表，key -> JSONB value）
type TenantSetting struct {
	TenantID     string          `db:"tenant_id"`     // UUID, PK part
	SettingKey   string          `db:"setting_key"`   // VARCHAR(100), PK part
	SettingValue json.RawMessage `db:"setting_value"` // JSONB, NOT NULL
	UpdatedAt    time.Time       `db:"updated_at"`    // TIMESTAMPTZ
}
