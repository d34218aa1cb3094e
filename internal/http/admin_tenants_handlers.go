package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/crypto"
	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// AimsCacheControl 凭据/设置变更后需要作废的网关缓存（*aims.Gateway 实现）
type AimsCacheControl interface {
	InvalidateToken(companyID string)
	InvalidateFormatCache(companyID string)
}

// TenantsHandler 租户管理 Handler（平台级）
// 租户 CRUD + AIMS 对接配置：密码进来即加密，出去永不回显；
// 凭据或 format 变更时作废网关对应缓存
type TenantsHandler struct {
	repo     repository.TenantsRepository
	settings repository.SettingsRepository
	cipher   *crypto.Cipher
	gateway  AimsCacheControl
	logger   *zap.Logger
}

// NewTenantsHandler 创建租户管理 Handler
func NewTenantsHandler(repo repository.TenantsRepository, settings repository.SettingsRepository, cipher *crypto.Cipher, gateway AimsCacheControl, logger *zap.Logger) *TenantsHandler {
	return &TenantsHandler{
		repo:     repo,
		settings: settings,
		cipher:   cipher,
		gateway:  gateway,
		logger:   logger,
	}
}

func tenantToJSON(t *domain.Tenant) map[string]any {
	return map[string]any{
		"tenant_id":   t.TenantID,
		"tenant_name": t.TenantName,
		"domain":      t.Domain,
		"status":      t.Status,
		"metadata":    t.Metadata,
		// AIMS 配置状态只给布尔值，凭据细节走 /aims 子路由
		"aims_configured": t.AimsBaseURL != "" && t.AimsUsername != "" && t.AimsPasswordEnc != "",
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	switch {
	case r.URL.Path == "/admin/api/v1/tenants" && r.Method == http.MethodGet:
		h.ListTenants(w, r)
	case r.URL.Path == "/admin/api/v1/tenants" && r.Method == http.MethodPost:
		h.CreateTenant(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/api/v1/tenants/"):
		rest := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/tenants/")
		parts := strings.Split(rest, "/")
		tenantID := parts[0]
		if tenantID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sub := strings.Join(parts[1:], "/")
		switch {
		case sub == "" && r.Method == http.MethodGet:
			h.GetTenant(w, r, tenantID)
		case sub == "" && r.Method == http.MethodPut:
			h.UpdateTenant(w, r, tenantID)
		case sub == "" && r.Method == http.MethodDelete:
			h.DeleteTenant(w, r, tenantID)
		case sub == "aims" && r.Method == http.MethodGet:
			h.GetAimsConfig(w, r, tenantID)
		case sub == "aims" && r.Method == http.MethodPut:
			h.UpdateAimsConfig(w, r, tenantID)
		case sub == "aims/disconnect" && r.Method == http.MethodPost:
			h.DisconnectAims(w, r, tenantID)
		case sub == "aims/article-format" && r.Method == http.MethodPut:
			h.UpdateArticleFormat(w, r, tenantID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListTenants 查询租户列表
func (h *TenantsHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repository.TenantFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)

	items, total, err := h.repo.ListTenants(ctx, filter, page, size)
	if err != nil {
		h.logger.Error("ListTenants failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list tenants: %v", err)))
		return
	}

	out := make([]any, 0, len(items))
	for _, t := range items {
		out = append(out, tenantToJSON(t))
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": out,
		"total": total,
	}))
}

// CreateTenant 创建租户
func (h *TenantsHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload struct {
		TenantName string          `json:"tenant_name"`
		Domain     string          `json:"domain"`
		Status     string          `json:"status"`
		Metadata   json.RawMessage `json:"metadata"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if payload.TenantName == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_name is required"))
		return
	}

	tenant := &domain.Tenant{
		TenantName: payload.TenantName,
		Domain:     payload.Domain,
		Status:     payload.Status,
		Metadata:   payload.Metadata,
	}
	tenantID, err := h.repo.CreateTenant(ctx, tenant)
	if err != nil {
		h.logger.Error("CreateTenant failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to create tenant: %v", err)))
		return
	}

	created, err := h.repo.GetTenant(ctx, tenantID)
	if err != nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"tenant_id": tenantID}))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tenantToJSON(created)))
}

// GetTenant 查询单个租户
func (h *TenantsHandler) GetTenant(w http.ResponseWriter, r *http.Request, tenantID string) {
	tenant, err := h.repo.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("tenant not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tenantToJSON(tenant)))
}

// UpdateTenant 更新租户基本信息
func (h *TenantsHandler) UpdateTenant(w http.ResponseWriter, r *http.Request, tenantID string) {
	ctx := r.Context()

	var payload struct {
		TenantName string          `json:"tenant_name"`
		Domain     string          `json:"domain"`
		Status     string          `json:"status"`
		Metadata   json.RawMessage `json:"metadata"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	tenant := &domain.Tenant{
		TenantName: payload.TenantName,
		Domain:     payload.Domain,
		Status:     payload.Status,
		Metadata:   payload.Metadata,
	}
	if err := h.repo.UpdateTenant(ctx, tenantID, tenant); err != nil {
		h.logger.Error("UpdateTenant failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to update tenant: %v", err)))
		return
	}

	updated, err := h.repo.GetTenant(ctx, tenantID)
	if err != nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tenantToJSON(updated)))
}

// DeleteTenant 删除租户（软删除）
func (h *TenantsHandler) DeleteTenant(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := h.repo.DeleteTenant(r.Context(), tenantID); err != nil {
		h.logger.Error("DeleteTenant failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to delete tenant: %v", err)))
		return
	}
	// 软删除的租户不应继续持有有效 token
	h.gateway.InvalidateToken(tenantID)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// GetAimsConfig 读取租户的 AIMS 对接配置（密码永不回显）
func (h *TenantsHandler) GetAimsConfig(w http.ResponseWriter, r *http.Request, tenantID string) {
	cfg, err := h.repo.GetAimsConfig(r.Context(), tenantID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("tenant not found"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"base_url":     cfg.BaseURL,
		"cluster":      cfg.Cluster,
		"username":     cfg.Username,
		"has_password": cfg.EncryptedPassword != "",
		"configured":   cfg.BaseURL != "" && cfg.Username != "" && cfg.EncryptedPassword != "",
	}))
}

// UpdateAimsConfig 更新租户的 AIMS 对接配置
// password 给了才换（加密后落库）；任何字段变更都作废该租户的 token 和 format 缓存
func (h *TenantsHandler) UpdateAimsConfig(w http.ResponseWriter, r *http.Request, tenantID string) {
	ctx := r.Context()

	var payload struct {
		BaseURL  string `json:"base_url"`
		Cluster  string `json:"cluster"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	current, err := h.repo.GetAimsConfig(ctx, tenantID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("tenant not found"))
		return
	}

	encrypted := current.EncryptedPassword
	if payload.Password != "" {
		if h.cipher == nil {
			writeJSON(w, http.StatusOK, Fail("credential encryption is not configured (AIMS_CREDENTIAL_KEY)"))
			return
		}
		enc, err := h.cipher.EncryptString(payload.Password)
		if err != nil {
			h.logger.Error("Failed to encrypt AIMS password", zap.String("tenant_id", tenantID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to encrypt password"))
			return
		}
		encrypted = enc
	}

	cfg := &domain.AimsConfig{
		TenantID:          tenantID,
		BaseURL:           payload.BaseURL,
		Cluster:           payload.Cluster,
		Username:          payload.Username,
		EncryptedPassword: encrypted,
	}
	if err := h.repo.UpdateAimsConfig(ctx, tenantID, cfg); err != nil {
		h.logger.Error("UpdateAimsConfig failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to update aims config: %v", err)))
		return
	}

	// 换了凭据，旧 token 和旧 format 都不可信
	h.gateway.InvalidateToken(tenantID)
	h.gateway.InvalidateFormatCache(tenantID)

	h.logger.Info("AIMS config updated",
		zap.String("tenant_id", tenantID),
		zap.Bool("password_changed", payload.Password != ""),
	)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// DisconnectAims 显式断开：只作废缓存 token，不动配置
func (h *TenantsHandler) DisconnectAims(w http.ResponseWriter, _ *http.Request, tenantID string) {
	h.gateway.InvalidateToken(tenantID)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// UpdateArticleFormat 保存租户的 article format 设置
// 持久化为新 source of truth，同时清掉网关内存层缓存防止陈旧值存活
func (h *TenantsHandler) UpdateArticleFormat(w http.ResponseWriter, r *http.Request, tenantID string) {
	ctx := r.Context()

	var format json.RawMessage
	if err := readBodyJSON(r, 1<<20, &format); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if len(format) == 0 || string(format) == "null" {
		writeJSON(w, http.StatusOK, Fail("article format is required"))
		return
	}

	if err := h.settings.SaveSetting(ctx, tenantID, domain.SettingKeyArticleFormat, format); err != nil {
		h.logger.Error("UpdateArticleFormat failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to save article format: %v", err)))
		return
	}
	h.gateway.InvalidateFormatCache(tenantID)

	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}
