package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// PostgresStoresRepository 站点Repository实现
type PostgresStoresRepository struct {
	db *sql.DB
}

// NewPostgresStoresRepository 创建站点Repository
func NewPostgresStoresRepository(db *sql.DB) *PostgresStoresRepository {
	return &PostgresStoresRepository{db: db}
}

// 确保实现了接口
var _ StoresRepository = (*PostgresStoresRepository)(nil)

const storeColumns = `
	store_id::text,
	tenant_id::text,
	store_code,
	store_name,
	COALESCE(status, 'active') as status
`

func scanStore(row rowScanner) (*domain.Store, error) {
	var store domain.Store
	err := row.Scan(
		&store.StoreID,
		&store.TenantID,
		&store.StoreCode,
		&store.StoreName,
		&store.Status,
	)
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// GetStore 根据store_id获取站点
func (r *PostgresStoresRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM stores WHERE store_id = $1::uuid`, storeColumns)

	store, err := scanStore(r.db.QueryRowContext(ctx, query, storeID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return store, nil
}

// ListStores 查询租户下的站点列表（分页）
func (r *PostgresStoresRepository) ListStores(ctx context.Context, tenantID string, page, size int) ([]*domain.Store, int, error) {
	if tenantID == "" {
		return nil, 0, fmt.Errorf("tenant_id is required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	// 查询总数
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stores WHERE tenant_id = $1::uuid`, tenantID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stores: %w", err)
	}

	// 查询列表（带分页）
	query := fmt.Sprintf(`
		SELECT %s
		FROM stores
		WHERE tenant_id = $1::uuid
		ORDER BY store_name
		LIMIT $2 OFFSET $3
	`, storeColumns)

	rows, err := r.db.QueryContext(ctx, query, tenantID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	stores := []*domain.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, store)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate stores: %w", err)
	}

	return stores, total, nil
}

// CreateStore 创建站点
func (r *PostgresStoresRepository) CreateStore(ctx context.Context, store *domain.Store) (string, error) {
	if store == nil {
		return "", fmt.Errorf("store is required")
	}
	if store.TenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if store.StoreCode == "" {
		return "", fmt.Errorf("store_code is required")
	}
	if store.StoreName == "" {
		return "", fmt.Errorf("store_name is required")
	}

	status := store.Status
	if status == "" {
		status = "active"
	}

	var storeID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO stores (tenant_id, store_code, store_name, status)
		 VALUES ($1::uuid, $2, $3, $4)
		 RETURNING store_id::text`,
		store.TenantID,
		store.StoreCode,
		store.StoreName,
		status,
	).Scan(&storeID)
	if err != nil {
		return "", fmt.Errorf("failed to create store: %w", err)
	}

	return storeID, nil
}

// UpdateStore 更新站点信息
func (r *PostgresStoresRepository) UpdateStore(ctx context.Context, storeID string, store *domain.Store) error {
	if storeID == "" {
		return fmt.Errorf("store_id is required")
	}
	if store == nil {
		return fmt.Errorf("store is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE stores
		 SET store_code = COALESCE(NULLIF($2, ''), store_code),
		     store_name = COALESCE(NULLIF($3, ''), store_name),
		     status = COALESCE(NULLIF($4, ''), status)
		 WHERE store_id = $1::uuid`,
		storeID,
		store.StoreCode,
		store.StoreName,
		store.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("store not found: store_id '%s' does not exist", storeID)
	}

	return nil
}
