package aims

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// defaultTokenTTL 厂家响应缺 expires_in 时的兜底有效期
const defaultTokenTTL = time.Hour

// Token 登录结果
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Response 厂家 API 通用响应壳（错误体解析用）
type Response struct {
	ResponseCode    string          `json:"responseCode,omitempty"`
	ResponseMessage string          `json:"responseMessage,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

type loginResponse struct {
	ResponseCode  string `json:"responseCode"`
	TokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	} `json:"tokenResponse"`
}

type articleListResponse struct {
	ArticleList []domain.Article `json:"articleList"`
}

// Client SoluM AIMS 厂家 API 客户端
// 单实例服务全部租户：不持有任何租户状态，每次调用按 StoreConfig/Credentials
// 组装完整 URL 并带上调用方给的 token
//
// 不用 resty 自带的重试：登录重试（指数退避、只认 429/5xx）在网关的重试策略里，
// 业务调用除 401/403 恢复外不重试
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建 AIMS 客户端
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

func apiURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// classify 在客户端边界把 HTTP 状态码映射为结构化错误
func classify(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	var body Response
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		apiErr.Code = body.ResponseCode
		apiErr.Message = body.ResponseMessage
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

func storeQuery(store *StoreConfig) map[string]string {
	return map[string]string{
		"company": store.CompanyID,
		"store":   store.StoreCode,
	}
}

// rawBody 拷贝响应体（resty 在连接复用时可能回收底层 buffer）
func rawBody(resp *resty.Response) json.RawMessage {
	return json.RawMessage(append([]byte(nil), resp.Body()...))
}

// Login 用户名密码换 token
func (c *Client) Login(ctx context.Context, creds *Credentials) (Token, error) {
	body := map[string]any{
		"username": creds.Username,
		"password": creds.Password,
	}
	if creds.Cluster != "" {
		body["cluster"] = creds.Cluster
	}

	c.logger.Debug("Calling AIMS API: login", zap.String("company_id", creds.CompanyID))

	var result loginResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(apiURL(creds.BaseURL, "/api/v2/token"))
	if err != nil {
		return Token{}, fmt.Errorf("failed to call AIMS login: %w", err)
	}
	if err := classify(resp); err != nil {
		return Token{}, err
	}

	if result.TokenResponse.AccessToken == "" {
		return Token{}, fmt.Errorf("AIMS login response missing access token")
	}

	ttl := time.Duration(result.TokenResponse.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return Token{
		AccessToken: result.TokenResponse.AccessToken,
		ExpiresAt:   time.Now().Add(ttl),
	}, nil
}

// FetchArticles 按页拉取商品
func (c *Client) FetchArticles(ctx context.Context, store *StoreConfig, token string, page, size int) ([]domain.Article, error) {
	var result articleListResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("size", strconv.Itoa(size)).
		SetResult(&result).
		Get(apiURL(store.BaseURL, "/api/v2/common/articles"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS articles: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return result.ArticleList, nil
}

// PushArticles 上行一批商品（调用方保证批大小不超过厂家单次上限）
func (c *Client) PushArticles(ctx context.Context, store *StoreConfig, token string, articles []domain.Article) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{"articleList": articles}).
		Post(apiURL(store.BaseURL, "/api/v2/common/articles"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS push articles: %w", err)
	}
	return classify(resp)
}

// DeleteArticles 删除厂家侧商品
func (c *Client) DeleteArticles(ctx context.Context, store *StoreConfig, token string, articleIDs []string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{"articleDeleteList": articleIDs}).
		Delete(apiURL(store.BaseURL, "/api/v2/common/articles"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS delete articles: %w", err)
	}
	return classify(resp)
}

// FetchArticleFormat 取租户的 article format 定义（响应体即 format JSON）
func (c *Client) FetchArticleFormat(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		Get(apiURL(store.BaseURL, "/api/v2/common/articles/format"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS article format: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// FetchLabels 拉取标签列表（厂家响应原样透传）
func (c *Client) FetchLabels(ctx context.Context, store *StoreConfig, token string, page, size int) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("size", strconv.Itoa(size)).
		Get(apiURL(store.BaseURL, "/api/v2/common/labels"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS labels: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// FetchUnassignedLabels 拉取未绑定商品的标签
func (c *Client) FetchUnassignedLabels(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		Get(apiURL(store.BaseURL, "/api/v2/common/labels/unassigned"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS unassigned labels: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// FetchLabelImages 取标签当前渲染的页面图
func (c *Client) FetchLabelImages(ctx context.Context, store *StoreConfig, token, labelCode string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetQueryParam("labelCode", labelCode).
		Get(apiURL(store.BaseURL, "/api/v2/common/labels/image"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS label images: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// LinkLabel 绑定标签到商品
func (c *Client) LinkLabel(ctx context.Context, store *StoreConfig, token, labelCode, articleID string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{
			"assignList": []map[string]any{
				{"labelCode": labelCode, "articleIdList": []string{articleID}},
			},
		}).
		Put(apiURL(store.BaseURL, "/api/v2/common/labels/link"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS link label: %w", err)
	}
	return classify(resp)
}

// UnlinkLabel 解绑标签
func (c *Client) UnlinkLabel(ctx context.Context, store *StoreConfig, token, labelCode string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetQueryParam("labelCode", labelCode).
		Delete(apiURL(store.BaseURL, "/api/v2/common/labels/unlink"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS unlink label: %w", err)
	}
	return classify(resp)
}

// BlinkLabel 让标签 LED 闪烁（现场找标签用）
func (c *Client) BlinkLabel(ctx context.Context, store *StoreConfig, token, labelCode, color string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{
			"labelCodeList": []string{labelCode},
			"ledColor":      color,
		}).
		Put(apiURL(store.BaseURL, "/api/v2/common/labels/led"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS blink label: %w", err)
	}
	return classify(resp)
}

// FetchLabelTypeInfo 取厂家支持的标签型号信息（分辨率、色彩等）
func (c *Client) FetchLabelTypeInfo(ctx context.Context, store *StoreConfig, token string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		Get(apiURL(store.BaseURL, "/api/v2/common/labels/type"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS label type info: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// PushLabelImage 向标签推送整页图片（base64）
func (c *Client) PushLabelImage(ctx context.Context, store *StoreConfig, token, labelCode string, page int, imageBase64 string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{
			"labelCode": labelCode,
			"page":      page,
			"image":     imageBase64,
		}).
		Post(apiURL(store.BaseURL, "/api/v2/common/labels/image"))
	if err != nil {
		return fmt.Errorf("failed to call AIMS push label image: %w", err)
	}
	return classify(resp)
}

// FetchDitherPreview 取图片按标签色彩抖动后的预览
func (c *Client) FetchDitherPreview(ctx context.Context, store *StoreConfig, token, imageBase64, labelType string) (json.RawMessage, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(storeQuery(store)).
		SetBody(map[string]any{
			"image":     imageBase64,
			"labelType": labelType,
		}).
		Post(apiURL(store.BaseURL, "/api/v2/common/labels/image/preview"))
	if err != nil {
		return nil, fmt.Errorf("failed to call AIMS dither preview: %w", err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}
