package aims

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// 厂家批量接口参数
const (
	pullPageSize  = 100 // 拉取分页大小
	maxPullPages  = 50  // 拉取页数上限（防御厂家分页异常导致的死循环）
	pushBatchSize = 500 // 单次上行商品上限
)

// vendorAPI 网关依赖的厂家客户端能力（测试用 mock 实现）
type vendorAPI interface {
	Login(ctx context.Context, creds *Credentials) (Token, error)
	FetchArticles(ctx context.Context, store *StoreConfig, token string, page, size int) ([]domain.Article, error)
	PushArticles(ctx context.Context, store *StoreConfig, token string, articles []domain.Article) error
	DeleteArticles(ctx context.Context, store *StoreConfig, token string, articleIDs []string) error
	FetchArticleFormat(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error)
	FetchLabels(ctx context.Context, store *StoreConfig, token string, page, size int) (json.RawMessage, error)
	FetchUnassignedLabels(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error)
	FetchLabelImages(ctx context.Context, store *StoreConfig, token, labelCode string) (json.RawMessage, error)
	LinkLabel(ctx context.Context, store *StoreConfig, token, labelCode, articleID string) error
	UnlinkLabel(ctx context.Context, store *StoreConfig, token, labelCode string) error
	BlinkLabel(ctx context.Context, store *StoreConfig, token, labelCode, color string) error
	FetchLabelTypeInfo(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error)
	PushLabelImage(ctx context.Context, store *StoreConfig, token, labelCode string, page int, imageBase64 string) error
	FetchDitherPreview(ctx context.Context, store *StoreConfig, token, imageBase64, labelType string) (json.RawMessage, error)
}

// Gateway SoluM AIMS 网关门面
// 凭据解析、token 缓存、并发登录合并、401/403 恢复都收敛在这里，
// 上层（service/http）只面对带语义的方法，不接触 token 和厂家错误码
//
// 显式构造的值对象：token/format 缓存和 singleflight 都挂在实例上，
// 不用包级单例，多套环境可并存
type Gateway struct {
	api         vendorAPI
	creds       *CredentialSource
	settings    repository.SettingsRepository
	tokens      *TokenCache
	formats     *FormatCache
	loginFlight singleflight.Group
	retry       retryPolicy
	logger      *zap.Logger
}

// NewGateway 创建网关
func NewGateway(client *Client, creds *CredentialSource, settings repository.SettingsRepository, logger *zap.Logger) *Gateway {
	return &Gateway{
		api:      client,
		creds:    creds,
		settings: settings,
		tokens:   NewTokenCache(),
		formats:  NewFormatCache(),
		retry:    defaultRetryPolicy(),
		logger:   logger,
	}
}

// ========== Token ==========

// GetToken 取租户的有效 token
// 缓存命中（剩余有效期 > 5 分钟）直接返回；未命中时同租户并发请求合并为一次登录，
// 全部等待者共享同一结果。登录与发起方的 ctx 解耦：发起方取消不会中断
// 其他等待者共享的那次登录
func (g *Gateway) GetToken(ctx context.Context, companyID string) (string, error) {
	if companyID == "" {
		return "", fmt.Errorf("company_id is required")
	}

	if token, ok := g.tokens.Get(companyID); ok {
		return token, nil
	}

	v, err, _ := g.loginFlight.Do(companyID, func() (any, error) {
		// 进入飞行后再查一次缓存：排队期间可能已有前一班完成登录
		if token, ok := g.tokens.Get(companyID); ok {
			return token, nil
		}

		loginCtx := context.WithoutCancel(ctx)

		creds, err := g.creds.Credentials(loginCtx, companyID)
		if err != nil {
			return nil, err
		}
		if creds == nil {
			return nil, fmt.Errorf("%w for company %s", ErrNotConfigured, companyID)
		}

		token, err := g.loginWithRetry(loginCtx, creds)
		if err != nil {
			return nil, err
		}

		g.tokens.Set(companyID, token.AccessToken, token.ExpiresAt)
		g.logger.Info("AIMS login succeeded",
			zap.String("company_id", companyID),
			zap.Time("expires_at", token.ExpiresAt),
		)
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// InvalidateToken 作废租户缓存 token（凭据变更、显式断开时由上层调用）
func (g *Gateway) InvalidateToken(companyID string) {
	g.tokens.Invalidate(companyID)
}

// callWithAuth 以有效 token 调用厂家接口
// 401/403 时作废 token、重新登录并重试一次；每个调用点只恢复一次，
// 连续两次认证失败按原错误抛出
func (g *Gateway) callWithAuth(ctx context.Context, companyID string, call func(token string) error) error {
	token, err := g.GetToken(ctx, companyID)
	if err != nil {
		return err
	}

	err = call(token)
	if err == nil || !IsAuthError(err) {
		return err
	}

	g.logger.Warn("AIMS token rejected, retrying with fresh login",
		zap.String("company_id", companyID),
	)
	g.InvalidateToken(companyID)

	token, err = g.GetToken(ctx, companyID)
	if err != nil {
		return err
	}
	return call(token)
}

func (g *Gateway) resolveStore(ctx context.Context, storeID string) (*StoreConfig, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store_id is required")
	}
	store, err := g.creds.StoreConfig(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w for store %s", ErrNotConfigured, storeID)
	}
	return store, nil
}

// ========== 商品 ==========

// PullArticles 从厂家云分页拉取站点全量商品
// 每页一个认证恢复点；短页（<100 条）或到达页数上限即停
func (g *Gateway) PullArticles(ctx context.Context, storeID string) ([]domain.Article, error) {
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	articles := []domain.Article{}
	for page := 1; page <= maxPullPages; page++ {
		var batch []domain.Article
		err := g.callWithAuth(ctx, store.CompanyID, func(token string) error {
			items, err := g.api.FetchArticles(ctx, store, token, page, pullPageSize)
			if err != nil {
				return err
			}
			batch = items
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to pull articles page %d: %w", page, err)
		}

		articles = append(articles, batch...)
		if len(batch) < pullPageSize {
			break
		}
	}

	g.logger.Info("Pulled articles from AIMS",
		zap.String("store_id", storeID),
		zap.Int("count", len(articles)),
	)
	return articles, nil
}

// PushArticles 批量上行商品：按 500 一批顺序推送，空列表不发任何请求
// 每批独立走一次认证恢复（长推送中途 token 过期也能续上）
func (g *Gateway) PushArticles(ctx context.Context, storeID string, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}

	for start := 0; start < len(articles); start += pushBatchSize {
		end := start + pushBatchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		err := g.callWithAuth(ctx, store.CompanyID, func(token string) error {
			return g.api.PushArticles(ctx, store, token, batch)
		})
		if err != nil {
			return fmt.Errorf("failed to push articles %d-%d: %w", start, end, err)
		}
	}

	g.logger.Info("Pushed articles to AIMS",
		zap.String("store_id", storeID),
		zap.Int("count", len(articles)),
	)
	return nil
}

// DeleteArticles 删除厂家云侧商品
func (g *Gateway) DeleteArticles(ctx context.Context, storeID string, articleIDs []string) error {
	if len(articleIDs) == 0 {
		return nil
	}

	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}

	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		return g.api.DeleteArticles(ctx, store, token, articleIDs)
	})
	if err != nil {
		return fmt.Errorf("failed to delete articles: %w", err)
	}

	g.logger.Info("Deleted articles from AIMS",
		zap.String("store_id", storeID),
		zap.Int("count", len(articleIDs)),
	)
	return nil
}

// ========== Article Format ==========

// FetchArticleFormat 取租户的 article format：内存缓存 → 持久化设置 → 厂家实取
// 实取成功后回写设置（尽力而为，失败只记日志）并回填内存缓存
func (g *Gateway) FetchArticleFormat(ctx context.Context, storeID string) (json.RawMessage, error) {
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if format, ok := g.formats.Get(store.CompanyID); ok {
		return format, nil
	}

	// 第二层：持久化设置
	value, err := g.settings.GetSetting(ctx, store.CompanyID, domain.SettingKeyArticleFormat)
	if err == nil && len(value) > 0 && string(value) != "null" {
		g.formats.Set(store.CompanyID, value)
		return value, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		// 设置层故障不致命，继续走厂家实取
		g.logger.Warn("Failed to read persisted article format",
			zap.String("tenant_id", store.CompanyID),
			zap.Error(err),
		)
	}

	// 第三层：厂家实取
	var format json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		fetched, err := g.api.FetchArticleFormat(ctx, store, token)
		if err != nil {
			return err
		}
		format = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article format: %w", err)
	}

	if err := g.settings.SaveSetting(ctx, store.CompanyID, domain.SettingKeyArticleFormat, format); err != nil {
		g.logger.Warn("Failed to persist article format",
			zap.String("tenant_id", store.CompanyID),
			zap.Error(err),
		)
	}
	g.formats.Set(store.CompanyID, format)
	return format, nil
}

// InvalidateFormatCache 清除租户的内存层 format 缓存（设置界面改了字段结构后调用）
func (g *Gateway) InvalidateFormatCache(companyID string) {
	g.formats.Invalidate(companyID)
}

// ========== 标签 ==========

// FetchLabels 拉取站点标签列表（厂家响应原样透传）
func (g *Gateway) FetchLabels(ctx context.Context, storeID string, page, size int) (json.RawMessage, error) {
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		body, err := g.api.FetchLabels(ctx, store, token, page, size)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	return result, err
}

// FetchUnassignedLabels 拉取未绑定商品的标签
func (g *Gateway) FetchUnassignedLabels(ctx context.Context, storeID string) (json.RawMessage, error) {
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		body, err := g.api.FetchUnassignedLabels(ctx, store, token)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	return result, err
}

// FetchLabelImages 取标签当前渲染的页面图
func (g *Gateway) FetchLabelImages(ctx context.Context, storeID, labelCode string) (json.RawMessage, error) {
	if labelCode == "" {
		return nil, fmt.Errorf("label_code is required")
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		body, err := g.api.FetchLabelImages(ctx, store, token, labelCode)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	return result, err
}

// LinkLabel 绑定标签到商品
func (g *Gateway) LinkLabel(ctx context.Context, storeID, labelCode, articleID string) error {
	if labelCode == "" {
		return fmt.Errorf("label_code is required")
	}
	if articleID == "" {
		return fmt.Errorf("article_id is required")
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}
	return g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		return g.api.LinkLabel(ctx, store, token, labelCode, articleID)
	})
}

// UnlinkLabel 解绑标签
func (g *Gateway) UnlinkLabel(ctx context.Context, storeID, labelCode string) error {
	if labelCode == "" {
		return fmt.Errorf("label_code is required")
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}
	return g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		return g.api.UnlinkLabel(ctx, store, token, labelCode)
	})
}

// BlinkLabel 让标签 LED 闪烁（现场找标签用）
func (g *Gateway) BlinkLabel(ctx context.Context, storeID, labelCode, color string) error {
	if labelCode == "" {
		return fmt.Errorf("label_code is required")
	}
	if color == "" {
		color = "RED"
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}
	return g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		return g.api.BlinkLabel(ctx, store, token, labelCode, color)
	})
}

// FetchLabelTypeInfo 取厂家支持的标签型号信息
func (g *Gateway) FetchLabelTypeInfo(ctx context.Context, storeID string) (json.RawMessage, error) {
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		body, err := g.api.FetchLabelTypeInfo(ctx, store, token)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	return result, err
}

// PushLabelImage 向标签推送整页图片（base64）
func (g *Gateway) PushLabelImage(ctx context.Context, storeID, labelCode string, page int, imageBase64 string) error {
	if labelCode == "" {
		return fmt.Errorf("label_code is required")
	}
	if imageBase64 == "" {
		return fmt.Errorf("image is required")
	}
	if page <= 0 {
		page = 1
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return err
	}
	return g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		return g.api.PushLabelImage(ctx, store, token, labelCode, page, imageBase64)
	})
}

// FetchDitherPreview 取图片按标签色彩抖动后的预览
func (g *Gateway) FetchDitherPreview(ctx context.Context, storeID, imageBase64, labelType string) (json.RawMessage, error) {
	if imageBase64 == "" {
		return nil, fmt.Errorf("image is required")
	}
	store, err := g.resolveStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var result json.RawMessage
	err = g.callWithAuth(ctx, store.CompanyID, func(token string) error {
		body, err := g.api.FetchDitherPreview(ctx, store, token, imageBase64, labelType)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	return result, err
}

// ========== 健康检查 ==========

// CheckCompanyHealth 租户连通性探测：能拿到有效 token 即健康
// 永不抛错：未配置、登录失败都只返回 false
func (g *Gateway) CheckCompanyHealth(ctx context.Context, companyID string) bool {
	if _, err := g.GetToken(ctx, companyID); err != nil {
		g.logger.Debug("AIMS company health check failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// CheckHealth 站点连通性探测（站点不存在或租户未配置时为 false）
func (g *Gateway) CheckHealth(ctx context.Context, storeID string) bool {
	store, err := g.creds.StoreConfig(ctx, storeID)
	if err != nil || store == nil {
		return false
	}
	return g.CheckCompanyHealth(ctx, store.CompanyID)
}
