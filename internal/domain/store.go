package domain

// Store 站点领域模型（对应 stores 表）
// 一个站点对应租户在 AIMS 侧的一个 store，store_code 为厂家侧标识
type Store struct {
	StoreID   string `db:"store_id"`   // UUID, PRIMARY KEY
	TenantID  string `db:"tenant_id"`  // UUID, NOT NULL, FK tenants
	StoreCode string `db:"store_code"` // VARCHAR(100), NOT NULL, AIMS 侧站点编码
	StoreName string `db:"store_name"` // VARCHAR(255), NOT NULL
	Status    string `db:"status"`     // VARCHAR(50), DEFAULT 'active' (active/inactive)
}
