package aims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/crypto"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// Credentials 解密后的租户 AIMS 凭据
// 只存在于内存：不回写、不入日志、不进任何响应
type Credentials struct {
	CompanyID string
	BaseURL   string
	Cluster   string
	Username  string
	Password  string
}

// StoreConfig 站点维度的调用配置（凭据 + 厂家侧站点编码）
type StoreConfig struct {
	StoreID   string
	StoreCode string
	Credentials
}

// CredentialSource 凭据访问器：读库 + 解密，统一"未配置"语义
// base_url/username/password 任一缺失、密文解密失败、租户或站点不存在，
// 都按未配置处理（返回 nil，不向上抛错）；数据库故障才作为错误返回
type CredentialSource struct {
	tenants repository.TenantsRepository
	stores  repository.StoresRepository
	cipher  *crypto.Cipher
	logger  *zap.Logger
}

// NewCredentialSource 创建凭据访问器
func NewCredentialSource(tenants repository.TenantsRepository, stores repository.StoresRepository, cipher *crypto.Cipher, logger *zap.Logger) *CredentialSource {
	return &CredentialSource{
		tenants: tenants,
		stores:  stores,
		cipher:  cipher,
		logger:  logger,
	}
}

// Credentials 解析租户凭据；未配置返回 (nil, nil)
func (s *CredentialSource) Credentials(ctx context.Context, companyID string) (*Credentials, error) {
	cfg, err := s.tenants.GetAimsConfig(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve aims credentials: %w", err)
	}

	if cfg.BaseURL == "" || cfg.Username == "" || cfg.EncryptedPassword == "" {
		return nil, nil
	}

	password, err := s.cipher.DecryptString(cfg.EncryptedPassword)
	if err != nil {
		// 密文损坏或密钥轮换后未重新配置：当作未配置，不让请求链路崩掉
		s.logger.Warn("Failed to decrypt AIMS credentials, treating tenant as unconfigured",
			zap.String("tenant_id", companyID),
			zap.Error(err),
		)
		return nil, nil
	}

	return &Credentials{
		CompanyID: cfg.TenantID,
		BaseURL:   cfg.BaseURL,
		Cluster:   cfg.Cluster,
		Username:  cfg.Username,
		Password:  password,
	}, nil
}

// StoreConfig 解析站点配置；站点不存在或所属租户未配置返回 (nil, nil)
func (s *CredentialSource) StoreConfig(ctx context.Context, storeID string) (*StoreConfig, error) {
	store, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve store: %w", err)
	}

	creds, err := s.Credentials(ctx, store.TenantID)
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, nil
	}

	return &StoreConfig{
		StoreID:     store.StoreID,
		StoreCode:   store.StoreCode,
		Credentials: *creds,
	}, nil
}
