package repository

import (
	"context"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// StoresRepository 站点Repository接口
// 站点是 AIMS 同步的作用域：网关所有操作都以 store_id 定位租户与厂家侧 store_code
type StoresRepository interface {
	// GetStore 根据store_id获取站点；不存在时返回包装后的 sql.ErrNoRows
	GetStore(ctx context.Context, storeID string) (*domain.Store, error)

	// ListStores 查询租户下的站点列表（分页）
	ListStores(ctx context.Context, tenantID string, page, size int) ([]*domain.Store, int, error)

	// CreateStore 创建站点，返回生成的store_id
	CreateStore(ctx context.Context, store *domain.Store) (string, error)

	// UpdateStore 更新站点信息（store_code/store_name/status）
	UpdateStore(ctx context.Context, storeID string, store *domain.Store) error
}
