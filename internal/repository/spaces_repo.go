package repository

import (
	"context"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// SpacesRepository 空间Repository接口
// 空间（工位/办公室/会议室）是标签同步的数据来源
type SpacesRepository interface {
	// ========== 查询 ==========
	// GetSpace 根据space_id获取空间；不存在时返回包装后的 sql.ErrNoRows
	GetSpace(ctx context.Context, tenantID, spaceID string) (*domain.Space, error)

	// ListSpaces 查询站点下的空间列表（支持分页、过滤、搜索）
	ListSpaces(ctx context.Context, storeID string, filter SpaceFilters, page, size int) ([]*domain.Space, int, error)

	// ListAllSpaces 取站点下全部空间（标签同步用，不分页）
	ListAllSpaces(ctx context.Context, storeID string) ([]*domain.Space, error)

	// ========== 写入 ==========
	// CreateSpace 创建空间，返回生成的space_id
	CreateSpace(ctx context.Context, space *domain.Space) (string, error)

	// UpdateSpace 更新空间信息（名称/类型/容量/使用人/标签绑定）
	UpdateSpace(ctx context.Context, tenantID, spaceID string, space *domain.Space) error

	// DeleteSpace 删除空间
	DeleteSpace(ctx context.Context, tenantID, spaceID string) error
}

// SpaceFilters 空间查询过滤器
type SpaceFilters struct {
	SpaceType string // 可选，按space_type过滤（desk/office/conference）
	Search    string // 可选，按space_name搜索（模糊匹配）
}
