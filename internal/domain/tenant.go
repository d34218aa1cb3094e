package domain

import "encoding/json"

// Tenant 租户领域模型（对应 tenants 表）
// 每个租户（公司）可选配置 SoluM AIMS 对接，companyId 即 tenant_id
type Tenant struct {
	// 主键
	TenantID string `db:"tenant_id"` // UUID, PRIMARY KEY

	// 基本信息
	TenantName string `db:"tenant_name"` // VARCHAR(255), NOT NULL
	Domain     string `db:"domain"`      // VARCHAR(255), UNIQUE, nullable

	// 状态
	Status string `db:"status"` // VARCHAR(50), DEFAULT 'active' (active/suspended/deleted)

	// AIMS 对接配置（base_url/username/password 三项齐全才视为已配置，cluster 可选）
	AimsBaseURL     string `db:"aims_base_url"`     // VARCHAR(512), nullable
	AimsCluster     string `db:"aims_cluster"`      // VARCHAR(50), nullable
	AimsUsername    string `db:"aims_username"`     // VARCHAR(255), nullable
	AimsPasswordEnc string `db:"aims_password_enc"` // TEXT, nullable, AES-GCM + base64

	// 扩展配置
	Metadata json.RawMessage `db:"metadata"` // JSONB, nullable
}

// AimsConfig 租户 AIMS 凭据记录（tenants 表 aims_* 列的投影）
// 密码保持密文，解密只发生在网关的凭据访问器内
type AimsConfig struct {
	TenantID          string `db:"tenant_id"`
	BaseURL           string `db:"aims_base_url"`
	Cluster           string `db:"aims_cluster"`
	Username          string `db:"aims_username"`
	EncryptedPassword string `db:"aims_password_enc"`
}
