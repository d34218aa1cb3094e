package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// SpacesHandler 站点与空间管理 Handler
// 注意：站点/空间是简单 CRUD，不需要 Service 层，直接使用 Repository；
// 空间变更后的厂家侧同步由 /aims/.../sync 显式触发，这里不隐式联动
type SpacesHandler struct {
	stores repository.StoresRepository
	spaces repository.SpacesRepository
	logger *zap.Logger
}

// NewSpacesHandler 创建站点与空间管理 Handler
func NewSpacesHandler(stores repository.StoresRepository, spaces repository.SpacesRepository, logger *zap.Logger) *SpacesHandler {
	return &SpacesHandler{
		stores: stores,
		spaces: spaces,
		logger: logger,
	}
}

func storeToJSON(s *domain.Store) map[string]any {
	return map[string]any{
		"store_id":   s.StoreID,
		"tenant_id":  s.TenantID,
		"store_code": s.StoreCode,
		"store_name": s.StoreName,
		"status":     s.Status,
	}
}

func spaceToJSON(s *domain.Space) map[string]any {
	return map[string]any{
		"space_id":      s.SpaceID,
		"tenant_id":     s.TenantID,
		"store_id":      s.StoreID,
		"space_code":    s.SpaceCode,
		"space_name":    s.SpaceName,
		"space_type":    s.SpaceType,
		"capacity":      s.Capacity,
		"occupant_name": s.OccupantName,
		"label_code":    s.LabelCode,
		"metadata":      s.Metadata,
	}
}

// spacePayload 空间创建/更新的请求体
type spacePayload struct {
	TenantID     string          `json:"tenant_id"`
	StoreID      string          `json:"store_id"`
	SpaceCode    string          `json:"space_code"`
	SpaceName    string          `json:"space_name"`
	SpaceType    string          `json:"space_type"`
	Capacity     int             `json:"capacity"`
	OccupantName string          `json:"occupant_name"`
	LabelCode    string          `json:"label_code"`
	Metadata     json.RawMessage `json:"metadata"`
}

// ServeHTTP 实现 http.Handler 接口
func (h *SpacesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// 路由分发
	switch {
	case path == "/admin/api/v1/stores" && r.Method == http.MethodGet:
		h.ListStores(w, r)
	case path == "/admin/api/v1/stores" && r.Method == http.MethodPost:
		h.CreateStore(w, r)
	case strings.HasPrefix(path, "/admin/api/v1/stores/"):
		rest := strings.TrimPrefix(path, "/admin/api/v1/stores/")
		parts := strings.Split(rest, "/")
		storeID := parts[0]
		if storeID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sub := strings.Join(parts[1:], "/")
		switch {
		case sub == "" && r.Method == http.MethodGet:
			h.GetStore(w, r, storeID)
		case sub == "" && r.Method == http.MethodPut:
			h.UpdateStore(w, r, storeID)
		case sub == "spaces" && r.Method == http.MethodGet:
			h.ListSpaces(w, r, storeID)
		case sub == "spaces" && r.Method == http.MethodPost:
			h.CreateSpace(w, r, storeID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/admin/api/v1/spaces/"):
		spaceID := strings.TrimPrefix(path, "/admin/api/v1/spaces/")
		if spaceID == "" || strings.Contains(spaceID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetSpace(w, r, spaceID)
		case http.MethodPut:
			h.UpdateSpace(w, r, spaceID)
		case http.MethodDelete:
			h.DeleteSpace(w, r, spaceID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ========== 站点 ==========

// ListStores 查询租户下的站点列表（?tenant_id= 必填）
func (h *SpacesHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 50)

	items, total, err := h.stores.ListStores(r.Context(), tenantID, page, size)
	if err != nil {
		h.logger.Error("ListStores failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list stores: %v", err)))
		return
	}

	out := make([]any, 0, len(items))
	for _, s := range items {
		out = append(out, storeToJSON(s))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total}))
}

// CreateStore 创建站点
func (h *SpacesHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TenantID  string `json:"tenant_id"`
		StoreCode string `json:"store_code"`
		StoreName string `json:"store_name"`
		Status    string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if payload.TenantID == "" || payload.StoreCode == "" || payload.StoreName == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id, store_code and store_name are required"))
		return
	}

	store := &domain.Store{
		TenantID:  payload.TenantID,
		StoreCode: payload.StoreCode,
		StoreName: payload.StoreName,
		Status:    payload.Status,
	}
	storeID, err := h.stores.CreateStore(r.Context(), store)
	if err != nil {
		h.logger.Error("CreateStore failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to create store: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"store_id": storeID}))
}

// GetStore 查询单个站点
func (h *SpacesHandler) GetStore(w http.ResponseWriter, r *http.Request, storeID string) {
	store, err := h.stores.GetStore(r.Context(), storeID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("store not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(storeToJSON(store)))
}

// UpdateStore 更新站点信息
func (h *SpacesHandler) UpdateStore(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		StoreCode string `json:"store_code"`
		StoreName string `json:"store_name"`
		Status    string `json:"status"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	store := &domain.Store{
		StoreCode: payload.StoreCode,
		StoreName: payload.StoreName,
		Status:    payload.Status,
	}
	if err := h.stores.UpdateStore(r.Context(), storeID, store); err != nil {
		h.logger.Error("UpdateStore failed", zap.String("store_id", storeID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to update store: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ========== 空间 ==========

// ListSpaces 查询站点下的空间列表
func (h *SpacesHandler) ListSpaces(w http.ResponseWriter, r *http.Request, storeID string) {
	filter := repository.SpaceFilters{
		SpaceType: r.URL.Query().Get("space_type"),
		Search:    r.URL.Query().Get("search"),
	}
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 100)

	items, total, err := h.spaces.ListSpaces(r.Context(), storeID, filter, page, size)
	if err != nil {
		h.logger.Error("ListSpaces failed", zap.String("store_id", storeID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list spaces: %v", err)))
		return
	}

	out := make([]any, 0, len(items))
	for _, s := range items {
		out = append(out, spaceToJSON(s))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": total}))
}

// CreateSpace 在站点下创建空间（tenant_id 取自站点，不信任请求体）
func (h *SpacesHandler) CreateSpace(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload spacePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if payload.SpaceCode == "" || payload.SpaceName == "" || payload.SpaceType == "" {
		writeJSON(w, http.StatusOK, Fail("space_code, space_name and space_type are required"))
		return
	}

	store, err := h.stores.GetStore(r.Context(), storeID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("store not found"))
		return
	}

	space := &domain.Space{
		TenantID:     store.TenantID,
		StoreID:      storeID,
		SpaceCode:    payload.SpaceCode,
		SpaceName:    payload.SpaceName,
		SpaceType:    payload.SpaceType,
		Capacity:     payload.Capacity,
		OccupantName: payload.OccupantName,
		LabelCode:    payload.LabelCode,
		Metadata:     payload.Metadata,
	}
	spaceID, err := h.spaces.CreateSpace(r.Context(), space)
	if err != nil {
		h.logger.Error("CreateSpace failed", zap.String("store_id", storeID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to create space: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"space_id": spaceID}))
}

// GetSpace 查询单个空间（?tenant_id= 必填，租户隔离）
func (h *SpacesHandler) GetSpace(w http.ResponseWriter, r *http.Request, spaceID string) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	space, err := h.spaces.GetSpace(r.Context(), tenantID, spaceID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("space not found"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(spaceToJSON(space)))
}

// UpdateSpace 更新空间信息（使用人、标签绑定等）
func (h *SpacesHandler) UpdateSpace(w http.ResponseWriter, r *http.Request, spaceID string) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	var payload spacePayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	space := &domain.Space{
		SpaceCode:    payload.SpaceCode,
		SpaceName:    payload.SpaceName,
		SpaceType:    payload.SpaceType,
		Capacity:     payload.Capacity,
		OccupantName: payload.OccupantName,
		LabelCode:    payload.LabelCode,
		Metadata:     payload.Metadata,
	}
	if err := h.spaces.UpdateSpace(r.Context(), tenantID, spaceID, space); err != nil {
		h.logger.Error("UpdateSpace failed", zap.String("space_id", spaceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to update space: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// DeleteSpace 删除空间
func (h *SpacesHandler) DeleteSpace(w http.ResponseWriter, r *http.Request, spaceID string) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeJSON(w, http.StatusOK, Fail("tenant_id is required"))
		return
	}

	if err := h.spaces.DeleteSpace(r.Context(), tenantID, spaceID); err != nil {
		h.logger.Error("DeleteSpace failed", zap.String("space_id", spaceID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to delete space: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}
