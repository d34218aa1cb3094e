package domain

import "encoding/json"

// Space 空间领域模型（对应 spaces 表）
// 工位/办公室/会议室，是电子价签(ESL)展示的数据来源：
// 同步时一个 Space 映射为 AIMS 的一个 Article（space_code 即 articleId）
type Space struct {
	SpaceID   string `db:"space_id"`   // UUID, PRIMARY KEY
	TenantID  string `db:"tenant_id"`  // UUID, NOT NULL, FK tenants
	StoreID   string `db:"store_id"`   // UUID, NOT NULL, FK stores
	SpaceCode string `db:"space_code"` // VARCHAR(100), NOT NULL, 站点内唯一
	SpaceName string `db:"space_name"` // VARCHAR(255), NOT NULL
	SpaceType string `db:"space_type"` // VARCHAR(50), NOT NULL (desk/office/conference)

	// 使用状态
	Capacity     int    `db:"capacity"`      // NOT NULL, default 1
	OccupantName string `db:"occupant_name"` // VARCHAR(255), nullable, 当前使用人
	LabelCode    string `db:"label_code"`    // VARCHAR(100), nullable, 已绑定的标签编码

	// 扩展配置
	Metadata json.RawMessage `db:"metadata"` // JSONB, nullable
}
