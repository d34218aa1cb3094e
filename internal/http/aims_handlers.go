package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/aims"
	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/service"
)

// AimsGateway Handler 依赖的网关能力（测试用 mock 实现）
type AimsGateway interface {
	PullArticles(ctx context.Context, storeID string) ([]domain.Article, error)
	DeleteArticles(ctx context.Context, storeID string, articleIDs []string) error
	FetchArticleFormat(ctx context.Context, storeID string) (json.RawMessage, error)
	FetchLabels(ctx context.Context, storeID string, page, size int) (json.RawMessage, error)
	FetchUnassignedLabels(ctx context.Context, storeID string) (json.RawMessage, error)
	FetchLabelImages(ctx context.Context, storeID, labelCode string) (json.RawMessage, error)
	LinkLabel(ctx context.Context, storeID, labelCode, articleID string) error
	UnlinkLabel(ctx context.Context, storeID, labelCode string) error
	BlinkLabel(ctx context.Context, storeID, labelCode, color string) error
	FetchLabelTypeInfo(ctx context.Context, storeID string) (json.RawMessage, error)
	PushLabelImage(ctx context.Context, storeID, labelCode string, page int, imageBase64 string) error
	FetchDitherPreview(ctx context.Context, storeID, imageBase64, labelType string) (json.RawMessage, error)
	CheckHealth(ctx context.Context, storeID string) bool
	CheckCompanyHealth(ctx context.Context, companyID string) bool
}

// AimsHandler AIMS 网关操作 Handler（站点维度）
// 商品的拉/推/删/导入导出走 ArticleService（带快照缓存），
// 标签操作和 format 直接透传网关
type AimsHandler struct {
	gateway  AimsGateway
	articles *service.ArticleService
	logger   *zap.Logger
}

// NewAimsHandler 创建 AIMS Handler
func NewAimsHandler(gateway AimsGateway, articles *service.ArticleService, logger *zap.Logger) *AimsHandler {
	return &AimsHandler{
		gateway:  gateway,
		articles: articles,
		logger:   logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
// 路由形如 /aims/api/v1/stores/{store_id}/... 和 /aims/api/v1/companies/{company_id}/health
func (h *AimsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if rest, ok := strings.CutPrefix(path, "/aims/api/v1/companies/"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[1] == "health" && r.Method == http.MethodGet {
			h.CompanyHealth(w, r, parts[0])
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}

	rest, ok := strings.CutPrefix(path, "/aims/api/v1/stores/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	storeID := parts[0]
	if storeID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sub := strings.Join(parts[1:], "/")

	// 路由分发
	switch {
	case sub == "articles" && r.Method == http.MethodGet:
		h.ListArticles(w, r, storeID)
	case sub == "articles" && r.Method == http.MethodPost:
		h.PushArticles(w, r, storeID)
	case sub == "articles" && r.Method == http.MethodDelete:
		h.DeleteArticles(w, r, storeID)
	case sub == "articles/format" && r.Method == http.MethodGet:
		h.GetArticleFormat(w, r, storeID)
	case sub == "articles/import" && r.Method == http.MethodPost:
		h.ImportArticles(w, r, storeID)
	case sub == "articles/import-template" && r.Method == http.MethodGet:
		h.GetImportTemplate(w, r, storeID)
	case sub == "articles/export" && r.Method == http.MethodGet:
		h.ExportArticles(w, r, storeID)
	case sub == "sync" && r.Method == http.MethodPost:
		h.SyncStore(w, r, storeID)
	case sub == "labels" && r.Method == http.MethodGet:
		h.ListLabels(w, r, storeID)
	case sub == "labels/unassigned" && r.Method == http.MethodGet:
		h.ListUnassignedLabels(w, r, storeID)
	case sub == "labels/type" && r.Method == http.MethodGet:
		h.GetLabelTypeInfo(w, r, storeID)
	case sub == "labels/image" && r.Method == http.MethodGet:
		h.GetLabelImages(w, r, storeID)
	case sub == "labels/image" && r.Method == http.MethodPost:
		h.PushLabelImage(w, r, storeID)
	case sub == "labels/image/preview" && r.Method == http.MethodPost:
		h.DitherPreview(w, r, storeID)
	case sub == "labels/link" && r.Method == http.MethodPut:
		h.LinkLabel(w, r, storeID)
	case sub == "labels/unlink" && r.Method == http.MethodDelete:
		h.UnlinkLabel(w, r, storeID)
	case sub == "labels/led" && r.Method == http.MethodPut:
		h.BlinkLabel(w, r, storeID)
	case sub == "health" && r.Method == http.MethodGet:
		h.StoreHealth(w, r, storeID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// failError 统一错误出口：未配置的租户给出明确提示，其余带上错误详情
func (h *AimsHandler) failError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, aims.ErrNotConfigured) {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to %s: %v", op, err)))
}

// ListArticles 查询站点的厂家侧商品列表
// ?cached=true 优先读 Redis 快照（UI 轮询用），响应带 from_cache 标记
func (h *AimsHandler) ListArticles(w http.ResponseWriter, r *http.Request, storeID string) {
	useCache := r.URL.Query().Get("cached") == "true"

	articles, fromCache, err := h.articles.ListArticles(r.Context(), storeID, useCache)
	if err != nil {
		h.logger.Error("ListArticles failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "list articles", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":      articles,
		"total":      len(articles),
		"from_cache": fromCache,
	}))
}

// PushArticles 上行商品
func (h *AimsHandler) PushArticles(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		Articles []domain.Article `json:"articleList"`
	}
	if err := readBodyJSON(r, 10<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.articles.PushArticles(r.Context(), storeID, payload.Articles); err != nil {
		h.logger.Error("PushArticles failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "push articles", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success": true,
		"pushed":  len(payload.Articles),
	}))
}

// DeleteArticles 删除厂家侧商品
func (h *AimsHandler) DeleteArticles(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		ArticleIDs []string `json:"articleIdList"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	if len(payload.ArticleIDs) == 0 {
		writeJSON(w, http.StatusOK, Fail("articleIdList is required"))
		return
	}

	if err := h.articles.DeleteArticles(r.Context(), storeID, payload.ArticleIDs); err != nil {
		h.logger.Error("DeleteArticles failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "delete articles", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success": true,
		"deleted": len(payload.ArticleIDs),
	}))
}

// GetArticleFormat 取租户的 article format（内存缓存 → 设置 → 厂家实取）
func (h *AimsHandler) GetArticleFormat(w http.ResponseWriter, r *http.Request, storeID string) {
	format, err := h.gateway.FetchArticleFormat(r.Context(), storeID)
	if err != nil {
		h.logger.Error("GetArticleFormat failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch article format", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(format))
}

// SyncStore 站点全量同步：空间 -> 商品 -> 厂家
func (h *AimsHandler) SyncStore(w http.ResponseWriter, r *http.Request, storeID string) {
	count, err := h.articles.SyncStore(r.Context(), storeID)
	if err != nil {
		h.logger.Error("SyncStore failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "sync store", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success": true,
		"synced":  count,
	}))
}

// ImportArticles 导入商品（multipart 上传 xlsx）
func (h *AimsHandler) ImportArticles(w http.ResponseWriter, r *http.Request, storeID string) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB max
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to read file"))
		return
	}

	count, err := h.articles.ImportArticles(r.Context(), storeID, fileBytes)
	if err != nil {
		h.logger.Error("ImportArticles failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "import articles", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"success":  true,
		"imported": count,
	}))
}

// GetImportTemplate 下载导入模板
func (h *AimsHandler) GetImportTemplate(w http.ResponseWriter, _ *http.Request, _ string) {
	data, err := service.GenerateArticleImportTemplate()
	if err != nil {
		h.logger.Error("GetImportTemplate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}
	writeExcel(w, "article-import-template.xlsx", data)
}

// ExportArticles 导出站点商品
func (h *AimsHandler) ExportArticles(w http.ResponseWriter, r *http.Request, storeID string) {
	data, err := h.articles.ExportArticles(r.Context(), storeID)
	if err != nil {
		h.logger.Error("ExportArticles failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "export articles", err)
		return
	}
	writeExcel(w, "articles-export.xlsx", data)
}

// ListLabels 拉取站点标签列表（厂家响应透传）
func (h *AimsHandler) ListLabels(w http.ResponseWriter, r *http.Request, storeID string) {
	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 100)

	result, err := h.gateway.FetchLabels(r.Context(), storeID, page, size)
	if err != nil {
		h.logger.Error("ListLabels failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch labels", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// ListUnassignedLabels 拉取未绑定商品的标签
func (h *AimsHandler) ListUnassignedLabels(w http.ResponseWriter, r *http.Request, storeID string) {
	result, err := h.gateway.FetchUnassignedLabels(r.Context(), storeID)
	if err != nil {
		h.logger.Error("ListUnassignedLabels failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch unassigned labels", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// GetLabelTypeInfo 取厂家支持的标签型号信息
func (h *AimsHandler) GetLabelTypeInfo(w http.ResponseWriter, r *http.Request, storeID string) {
	result, err := h.gateway.FetchLabelTypeInfo(r.Context(), storeID)
	if err != nil {
		h.logger.Error("GetLabelTypeInfo failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch label type info", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// GetLabelImages 取标签当前渲染的页面图（?labelCode=）
func (h *AimsHandler) GetLabelImages(w http.ResponseWriter, r *http.Request, storeID string) {
	labelCode := r.URL.Query().Get("labelCode")
	if labelCode == "" {
		writeJSON(w, http.StatusOK, Fail("labelCode is required"))
		return
	}
	result, err := h.gateway.FetchLabelImages(r.Context(), storeID, labelCode)
	if err != nil {
		h.logger.Error("GetLabelImages failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch label images", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// PushLabelImage 向标签推送整页图片
func (h *AimsHandler) PushLabelImage(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		LabelCode string `json:"labelCode"`
		Page      int    `json:"page"`
		Image     string `json:"image"`
	}
	if err := readBodyJSON(r, 10<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.gateway.PushLabelImage(r.Context(), storeID, payload.LabelCode, payload.Page, payload.Image); err != nil {
		h.logger.Error("PushLabelImage failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "push label image", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// DitherPreview 取图片按标签色彩抖动后的预览
func (h *AimsHandler) DitherPreview(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		Image     string `json:"image"`
		LabelType string `json:"labelType"`
	}
	if err := readBodyJSON(r, 10<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	result, err := h.gateway.FetchDitherPreview(r.Context(), storeID, payload.Image, payload.LabelType)
	if err != nil {
		h.logger.Error("DitherPreview failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "fetch dither preview", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// LinkLabel 绑定标签到商品
func (h *AimsHandler) LinkLabel(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		LabelCode string `json:"labelCode"`
		ArticleID string `json:"articleId"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.gateway.LinkLabel(r.Context(), storeID, payload.LabelCode, payload.ArticleID); err != nil {
		h.logger.Error("LinkLabel failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "link label", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// UnlinkLabel 解绑标签（?labelCode=）
func (h *AimsHandler) UnlinkLabel(w http.ResponseWriter, r *http.Request, storeID string) {
	labelCode := r.URL.Query().Get("labelCode")
	if labelCode == "" {
		writeJSON(w, http.StatusOK, Fail("labelCode is required"))
		return
	}

	if err := h.gateway.UnlinkLabel(r.Context(), storeID, labelCode); err != nil {
		h.logger.Error("UnlinkLabel failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "unlink label", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// BlinkLabel 让标签 LED 闪烁
func (h *AimsHandler) BlinkLabel(w http.ResponseWriter, r *http.Request, storeID string) {
	var payload struct {
		LabelCode string `json:"labelCode"`
		Color     string `json:"color"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	if err := h.gateway.BlinkLabel(r.Context(), storeID, payload.LabelCode, payload.Color); err != nil {
		h.logger.Error("BlinkLabel failed", zap.String("store_id", storeID), zap.Error(err))
		h.failError(w, "blink label", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// StoreHealth 站点连通性探测（非抛错：探测失败返回 ok=false，HTTP 仍 200）
func (h *AimsHandler) StoreHealth(w http.ResponseWriter, r *http.Request, storeID string) {
	ok := h.gateway.CheckHealth(r.Context(), storeID)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"ok": ok}))
}

// CompanyHealth 租户连通性探测
func (h *AimsHandler) CompanyHealth(w http.ResponseWriter, r *http.Request, companyID string) {
	ok := h.gateway.CheckCompanyHealth(r.Context(), companyID)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"ok": ok}))
}
