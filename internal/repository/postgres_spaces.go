package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// PostgresSpacesRepository 空间Repository实现
type PostgresSpacesRepository struct {
	db *sql.DB
}

// NewPostgresSpacesRepository 创建空间Repository
func NewPostgresSpacesRepository(db *sql.DB) *PostgresSpacesRepository {
	return &PostgresSpacesRepository{db: db}
}

// 确保实现了接口
var _ SpacesRepository = (*PostgresSpacesRepository)(nil)

const spaceColumns = `
	space_id::text,
	tenant_id::text,
	store_id::text,
	space_code,
	space_name,
	space_type,
	COALESCE(capacity, 1) as capacity,
	COALESCE(occupant_name, '') as occupant_name,
	COALESCE(label_code, '') as label_code,
	COALESCE(metadata, '{}'::jsonb) as metadata
`

func scanSpace(row rowScanner) (*domain.Space, error) {
	var space domain.Space
	var metadataRaw json.RawMessage
	err := row.Scan(
		&space.SpaceID,
		&space.TenantID,
		&space.StoreID,
		&space.SpaceCode,
		&space.SpaceName,
		&space.SpaceType,
		&space.Capacity,
		&space.OccupantName,
		&space.LabelCode,
		&metadataRaw,
	)
	if err != nil {
		return nil, err
	}
	space.Metadata = metadataRaw
	return &space, nil
}

// GetSpace 根据space_id获取空间
func (r *PostgresSpacesRepository) GetSpace(ctx context.Context, tenantID, spaceID string) (*domain.Space, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if spaceID == "" {
		return nil, fmt.Errorf("space_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM spaces WHERE tenant_id = $1::uuid AND space_id = $2::uuid`, spaceColumns)

	space, err := scanSpace(r.db.QueryRowContext(ctx, query, tenantID, spaceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("space not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get space: %w", err)
	}
	return space, nil
}

// ListSpaces 查询站点下的空间列表（支持分页、过滤、搜索）
func (r *PostgresSpacesRepository) ListSpaces(ctx context.Context, storeID string, filter SpaceFilters, page, size int) ([]*domain.Space, int, error) {
	if storeID == "" {
		return nil, 0, fmt.Errorf("store_id is required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	// 构建WHERE条件
	where := []string{"store_id = $1::uuid"}
	args := []any{storeID}
	argIdx := 2

	if filter.SpaceType != "" {
		where = append(where, fmt.Sprintf("space_type = $%d", argIdx))
		args = append(args, filter.SpaceType)
		argIdx++
	}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("space_name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM spaces %s`, whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count spaces: %w", err)
	}

	// 查询列表（带分页）
	query := fmt.Sprintf(`
		SELECT %s
		FROM spaces
		%s
		ORDER BY space_code
		LIMIT $%d OFFSET $%d
	`, spaceColumns, whereClause, argIdx, argIdx+1)

	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []*domain.Space{}
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, space)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate spaces: %w", err)
	}

	return spaces, total, nil
}

// ListAllSpaces 取站点下全部空间（标签同步用，不分页）
func (r *PostgresSpacesRepository) ListAllSpaces(ctx context.Context, storeID string) ([]*domain.Space, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM spaces
		WHERE store_id = $1::uuid
		ORDER BY space_code
	`, spaceColumns)

	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []*domain.Space{}
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, space)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spaces: %w", err)
	}

	return spaces, nil
}

// CreateSpace 创建空间
func (r *PostgresSpacesRepository) CreateSpace(ctx context.Context, space *domain.Space) (string, error) {
	if space == nil {
		return "", fmt.Errorf("space is required")
	}
	if space.TenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if space.StoreID == "" {
		return "", fmt.Errorf("store_id is required")
	}
	if space.SpaceCode == "" {
		return "", fmt.Errorf("space_code is required")
	}
	if space.SpaceName == "" {
		return "", fmt.Errorf("space_name is required")
	}
	if space.SpaceType == "" {
		return "", fmt.Errorf("space_type is required")
	}

	capacity := space.Capacity
	if capacity <= 0 {
		capacity = 1
	}

	metadataArg := "{}"
	if len(space.Metadata) > 0 {
		metadataArg = string(space.Metadata)
	}

	var spaceID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO spaces (tenant_id, store_id, space_code, space_name, space_type, capacity, occupant_name, label_code, metadata)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9::jsonb)
		 RETURNING space_id::text`,
		space.TenantID,
		space.StoreID,
		space.SpaceCode,
		space.SpaceName,
		space.SpaceType,
		capacity,
		space.OccupantName,
		space.LabelCode,
		metadataArg,
	).Scan(&spaceID)
	if err != nil {
		return "", fmt.Errorf("failed to create space: %w", err)
	}

	return spaceID, nil
}

// UpdateSpace 更新空间信息
// occupant_name/label_code 总是按传入值覆盖（空字符串表示解除占用/解绑），其余字段空值保持不变
func (r *PostgresSpacesRepository) UpdateSpace(ctx context.Context, tenantID, spaceID string, space *domain.Space) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if spaceID == "" {
		return fmt.Errorf("space_id is required")
	}
	if space == nil {
		return fmt.Errorf("space is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE spaces
		 SET space_code = COALESCE(NULLIF($3, ''), space_code),
		     space_name = COALESCE(NULLIF($4, ''), space_name),
		     space_type = COALESCE(NULLIF($5, ''), space_type),
		     capacity = CASE WHEN $6 > 0 THEN $6 ELSE capacity END,
		     occupant_name = NULLIF($7, ''),
		     label_code = NULLIF($8, '')
		 WHERE tenant_id = $1::uuid AND space_id = $2::uuid`,
		tenantID,
		spaceID,
		space.SpaceCode,
		space.SpaceName,
		space.SpaceType,
		space.Capacity,
		space.OccupantName,
		space.LabelCode,
	)
	if err != nil {
		return fmt.Errorf("failed to update space: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("space not found: space_id '%s' does not exist", spaceID)
	}

	return nil
}

// DeleteSpace 删除空间
func (r *PostgresSpacesRepository) DeleteSpace(ctx context.Context, tenantID, spaceID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if spaceID == "" {
		return fmt.Errorf("space_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM spaces WHERE tenant_id = $1::uuid AND space_id = $2::uuid`,
		tenantID, spaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete space: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("space not found: space_id '%s' does not exist", spaceID)
	}

	return nil
}
