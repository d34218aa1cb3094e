package aims

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/crypto"
	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
)

// mockVendorAPI 可编程的厂家客户端 mock
// 各方法默认成功；通过 *Fn 字段注入具体行为，调用都有计数
type mockVendorAPI struct {
	mu sync.Mutex

	loginCalls int
	loginFn    func() (Token, error)

	fetchPages  []int
	fetchTokens []string
	fetchFn     func(page, size int) ([]domain.Article, error)

	pushBatches [][]domain.Article
	pushTokens  []string
	pushFn      func(batch []domain.Article) error

	deleteIDs [][]string
	deleteFn  func(ids []string) error

	formatCalls int
	formatFn    func() (json.RawMessage, error)

	labelCalls int
	labelsFn   func() (json.RawMessage, error)

	linkCalls int
	linkFn    func() error
}

func (m *mockVendorAPI) Login(_ context.Context, _ *Credentials) (Token, error) {
	m.mu.Lock()
	m.loginCalls++
	n := m.loginCalls
	m.mu.Unlock()
	if m.loginFn != nil {
		return m.loginFn()
	}
	return Token{AccessToken: "tok-" + strconv.Itoa(n), ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockVendorAPI) FetchArticles(_ context.Context, _ *StoreConfig, token string, page, size int) ([]domain.Article, error) {
	m.mu.Lock()
	m.fetchPages = append(m.fetchPages, page)
	m.fetchTokens = append(m.fetchTokens, token)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(page, size)
	}
	return nil, nil
}

func (m *mockVendorAPI) PushArticles(_ context.Context, _ *StoreConfig, token string, articles []domain.Article) error {
	m.mu.Lock()
	m.pushBatches = append(m.pushBatches, articles)
	m.pushTokens = append(m.pushTokens, token)
	m.mu.Unlock()
	if m.pushFn != nil {
		return m.pushFn(articles)
	}
	return nil
}

func (m *mockVendorAPI) DeleteArticles(_ context.Context, _ *StoreConfig, _ string, articleIDs []string) error {
	m.mu.Lock()
	m.deleteIDs = append(m.deleteIDs, articleIDs)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(articleIDs)
	}
	return nil
}

func (m *mockVendorAPI) FetchArticleFormat(_ context.Context, _ *StoreConfig, _ string) (json.RawMessage, error) {
	m.mu.Lock()
	m.formatCalls++
	m.mu.Unlock()
	if m.formatFn != nil {
		return m.formatFn()
	}
	return json.RawMessage(`{"1":"articleId","2":"articleName"}`), nil
}

func (m *mockVendorAPI) fetchLabelPayload() (json.RawMessage, error) {
	m.mu.Lock()
	m.labelCalls++
	m.mu.Unlock()
	if m.labelsFn != nil {
		return m.labelsFn()
	}
	return json.RawMessage(`{"labelList":[]}`), nil
}

func (m *mockVendorAPI) labelAction() error {
	m.mu.Lock()
	m.linkCalls++
	m.mu.Unlock()
	if m.linkFn != nil {
		return m.linkFn()
	}
	return nil
}

func (m *mockVendorAPI) FetchLabels(_ context.Context, _ *StoreConfig, _ string, _, _ int) (json.RawMessage, error) {
	return m.fetchLabelPayload()
}

func (m *mockVendorAPI) FetchUnassignedLabels(_ context.Context, _ *StoreConfig, _ string) (json.RawMessage, error) {
	return m.fetchLabelPayload()
}

func (m *mockVendorAPI) FetchLabelImages(_ context.Context, _ *StoreConfig, _, _ string) (json.RawMessage, error) {
	return m.fetchLabelPayload()
}

func (m *mockVendorAPI) LinkLabel(_ context.Context, _ *StoreConfig, _, _, _ string) error {
	return m.labelAction()
}

func (m *mockVendorAPI) UnlinkLabel(_ context.Context, _ *StoreConfig, _, _ string) error {
	return m.labelAction()
}

func (m *mockVendorAPI) BlinkLabel(_ context.Context, _ *StoreConfig, _, _, _ string) error {
	return m.labelAction()
}

func (m *mockVendorAPI) FetchLabelTypeInfo(_ context.Context, _ *StoreConfig, _ string) (json.RawMessage, error) {
	return m.fetchLabelPayload()
}

func (m *mockVendorAPI) PushLabelImage(_ context.Context, _ *StoreConfig, _, _ string, _ int, _ string) error {
	return m.labelAction()
}

func (m *mockVendorAPI) FetchDitherPreview(_ context.Context, _ *StoreConfig, _, _, _ string) (json.RawMessage, error) {
	return m.fetchLabelPayload()
}

// countingSettingsRepo 包装内存设置仓库，统计调用并可注入错误
type countingSettingsRepo struct {
	inner     *repository.MemorySettingsRepo
	mu        sync.Mutex
	getCalls  int
	saveCalls int
	getErr    error
	saveErr   error
}

func newCountingSettingsRepo() *countingSettingsRepo {
	return &countingSettingsRepo{inner: repository.NewMemorySettingsRepo()}
}

func (r *countingSettingsRepo) GetSetting(ctx context.Context, tenantID, key string) (json.RawMessage, error) {
	r.mu.Lock()
	r.getCalls++
	err := r.getErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.inner.GetSetting(ctx, tenantID, key)
}

func (r *countingSettingsRepo) SaveSetting(ctx context.Context, tenantID, key string, value json.RawMessage) error {
	r.mu.Lock()
	r.saveCalls++
	err := r.saveErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.inner.SaveSetting(ctx, tenantID, key, value)
}

// gatewayFixture 网关测试环境：内存仓库 + mock 厂家客户端 + 可观测的重试依赖
type gatewayFixture struct {
	gw       *Gateway
	api      *mockVendorAPI
	tenants  *repository.MemoryTenantsRepo
	stores   *repository.MemoryStoresRepo
	settings *countingSettingsRepo
	cipher   *crypto.Cipher
	tenantID string
	storeID  string

	mu     sync.Mutex
	sleeps []time.Duration
}

func (f *gatewayFixture) recordSleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
}

func (f *gatewayFixture) sleepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sleeps)
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	ctx := context.Background()

	cipher, err := crypto.NewCipher("unit-test-credential-key")
	require.NoError(t, err)

	tenants := repository.NewMemoryTenantsRepo()
	stores := repository.NewMemoryStoresRepo()
	settings := newCountingSettingsRepo()

	tenantID, err := tenants.CreateTenant(ctx, &domain.Tenant{TenantName: "Acme Workspaces"})
	require.NoError(t, err)

	encrypted, err := cipher.EncryptString("vendor-pass")
	require.NoError(t, err)
	require.NoError(t, tenants.UpdateAimsConfig(ctx, tenantID, &domain.AimsConfig{
		BaseURL:           "https://aims.vendor.test",
		Cluster:           "eu",
		Username:          "svc-account",
		EncryptedPassword: encrypted,
	}))

	storeID, err := stores.CreateStore(ctx, &domain.Store{
		TenantID:  tenantID,
		StoreCode: "HQ-01",
		StoreName: "Headquarters",
	})
	require.NoError(t, err)

	f := &gatewayFixture{
		api:      &mockVendorAPI{},
		tenants:  tenants,
		stores:   stores,
		settings: settings,
		cipher:   cipher,
		tenantID: tenantID,
		storeID:  storeID,
	}
	f.gw = &Gateway{
		api:      f.api,
		creds:    NewCredentialSource(tenants, stores, cipher, zap.NewNop()),
		settings: settings,
		tokens:   NewTokenCache(),
		formats:  NewFormatCache(),
		retry: retryPolicy{
			maxRetries: loginMaxRetries,
			baseDelay:  loginBaseDelay,
			sleep:      f.recordSleep,
			randFloat:  func() float64 { return 0.5 }, // jitter 固定为 1.0，延迟可精确断言
		},
		logger: zap.NewNop(),
	}
	return f
}

func apiError(status int) error {
	return &APIError{StatusCode: status, Message: http.StatusText(status)}
}

func articleBatch(n int) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{ArticleID: "A-" + strconv.Itoa(i)}
	}
	return out
}

// ========== GetToken ==========

func TestGetTokenCachesToken(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	token1, err := f.gw.GetToken(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token1)

	// 命中缓存：不再登录
	token2, err := f.gw.GetToken(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, token1, token2)
	assert.Equal(t, 1, f.api.loginCalls)
}

func TestGetTokenStaleBufferTriggersRelogin(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	_, err := f.gw.GetToken(ctx, f.tenantID)
	require.NoError(t, err)
	require.Equal(t, 1, f.api.loginCalls)

	// 剩余有效期压到 5 分钟以内：下一次取 token 必须重新登录
	f.gw.tokens.Set(f.tenantID, "tok-1", time.Now().Add(4*time.Minute))

	token, err := f.gw.GetToken(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, 2, f.api.loginCalls)
}

func TestGetTokenSingleflight(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	f.api.loginFn = func() (Token, error) {
		time.Sleep(50 * time.Millisecond)
		return Token{AccessToken: "shared-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	const callers = 20
	gate := make(chan struct{})
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			tokens[i], errs[i] = f.gw.GetToken(ctx, f.tenantID)
		}(i)
	}
	close(gate)
	wg.Wait()

	// 并发取 token 只触发一次登录，所有调用方拿到同一个 token
	assert.Equal(t, 1, f.api.loginCalls)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-token", tokens[i])
	}
}

func TestGetTokenSingleflightReleasedAfterFailure(t *testing.T) {
	f := newGatewayFixture(t)
	f.gw.retry.maxRetries = 0 // 不重试，便于计数
	ctx := context.Background()

	f.api.loginFn = func() (Token, error) {
		time.Sleep(30 * time.Millisecond)
		return Token{}, apiError(http.StatusServiceUnavailable)
	}

	const callers = 10
	gate := make(chan struct{})
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			_, errs[i] = f.gw.GetToken(ctx, f.tenantID)
		}(i)
	}
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.api.loginCalls)
	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
	}

	// 失败后飞行条目必须已释放：下一次调用发起新的登录
	f.api.loginFn = nil
	token, err := f.gw.GetToken(ctx, f.tenantID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 2, f.api.loginCalls)
}

func TestGetTokenUnconfiguredTenant(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	bareID, err := f.tenants.CreateTenant(ctx, &domain.Tenant{TenantName: "No Vendor Inc"})
	require.NoError(t, err)

	_, err = f.gw.GetToken(ctx, bareID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No AIMS credentials configured")
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Equal(t, 0, f.api.loginCalls)
}

func TestGetTokenCorruptCredentials(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	// 密文损坏：按未配置处理，不 panic 不登录
	require.NoError(t, f.tenants.UpdateAimsConfig(ctx, f.tenantID, &domain.AimsConfig{
		BaseURL:           "https://aims.vendor.test",
		Username:          "svc-account",
		EncryptedPassword: "@@@not-a-valid-blob@@@",
	}))

	_, err := f.gw.GetToken(ctx, f.tenantID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Equal(t, 0, f.api.loginCalls)
}

func TestGetTokenMissingCompanyID(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gw.GetToken(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company_id is required")
}

// ========== PullArticles ==========

func TestPullArticlesStopsOnShortPage(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	f.api.fetchFn = func(page, size int) ([]domain.Article, error) {
		require.Equal(t, 100, size)
		if page <= 2 {
			return articleBatch(100), nil
		}
		return articleBatch(30), nil
	}

	articles, err := f.gw.PullArticles(ctx, f.storeID)
	require.NoError(t, err)
	assert.Len(t, articles, 230)
	assert.Equal(t, []int{1, 2, 3}, f.api.fetchPages)
}

func TestPullArticlesPageCap(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	// 厂家每页都返回满页：到 50 页上限必须停下
	f.api.fetchFn = func(page, size int) ([]domain.Article, error) {
		return articleBatch(100), nil
	}

	articles, err := f.gw.PullArticles(ctx, f.storeID)
	require.NoError(t, err)
	assert.Len(t, articles, 5000)
	assert.Len(t, f.api.fetchPages, 50)
}

func TestPullArticlesAuthRetryMidPagination(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	page2Failures := 0
	f.api.fetchFn = func(page, size int) ([]domain.Article, error) {
		if page == 2 && page2Failures == 0 {
			page2Failures++
			return nil, apiError(http.StatusUnauthorized)
		}
		if page <= 2 {
			return articleBatch(100), nil
		}
		return articleBatch(10), nil
	}

	articles, err := f.gw.PullArticles(ctx, f.storeID)
	require.NoError(t, err)
	assert.Len(t, articles, 210)
	// 第 2 页失败一次后用新 token 重试，然后继续翻页
	assert.Equal(t, []int{1, 2, 2, 3}, f.api.fetchPages)
	assert.Equal(t, 2, f.api.loginCalls)
	assert.Equal(t, "tok-2", f.api.fetchTokens[2])
}

func TestPullArticlesUnknownStore(t *testing.T) {
	f := newGatewayFixture(t)

	_, err := f.gw.PullArticles(context.Background(), "00000000-0000-0000-0000-00000000dead")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

// ========== PushArticles ==========

func TestPushArticlesSplitsBatches(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	err := f.gw.PushArticles(ctx, f.storeID, articleBatch(1200))
	require.NoError(t, err)

	// 1200 条 -> 500/500/200 三批，顺序推送
	require.Len(t, f.api.pushBatches, 3)
	assert.Len(t, f.api.pushBatches[0], 500)
	assert.Len(t, f.api.pushBatches[1], 500)
	assert.Len(t, f.api.pushBatches[2], 200)
	assert.Equal(t, "A-0", f.api.pushBatches[0][0].ArticleID)
	assert.Equal(t, "A-500", f.api.pushBatches[1][0].ArticleID)
	assert.Equal(t, "A-1000", f.api.pushBatches[2][0].ArticleID)
}

func TestPushArticlesEmptyIsNoop(t *testing.T) {
	f := newGatewayFixture(t)

	err := f.gw.PushArticles(context.Background(), f.storeID, nil)
	require.NoError(t, err)

	// 空列表：不登录、不发任何厂家请求
	assert.Equal(t, 0, f.api.loginCalls)
	assert.Empty(t, f.api.pushBatches)
}

func TestPushArticlesAuthRetryOnLaterBatch(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	failed := false
	f.api.pushFn = func(batch []domain.Article) error {
		// 第二批首次失败：模拟长推送中途 token 过期
		if len(f.api.pushBatches) == 2 && !failed {
			failed = true
			return apiError(http.StatusForbidden)
		}
		return nil
	}

	err := f.gw.PushArticles(ctx, f.storeID, articleBatch(1200))
	require.NoError(t, err)

	require.Len(t, f.api.pushBatches, 4) // b1 + b2(失败) + b2(重试) + b3
	assert.Equal(t, 2, f.api.loginCalls)
	assert.Equal(t, "tok-2", f.api.pushTokens[2])
	assert.Len(t, f.api.pushBatches[3], 200)
}

func TestPushArticlesDoubleAuthFailurePropagates(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	f.api.pushFn = func(batch []domain.Article) error {
		return apiError(http.StatusUnauthorized)
	}

	err := f.gw.PushArticles(ctx, f.storeID, articleBatch(10))
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	// 每个调用点只恢复一次：初次 + 重试一次，不再继续
	assert.Len(t, f.api.pushBatches, 2)
	assert.Equal(t, 2, f.api.loginCalls)
}

// ========== DeleteArticles ==========

func TestDeleteArticles(t *testing.T) {
	f := newGatewayFixture(t)

	err := f.gw.DeleteArticles(context.Background(), f.storeID, []string{"A-1", "A-2"})
	require.NoError(t, err)
	require.Len(t, f.api.deleteIDs, 1)
	assert.Equal(t, []string{"A-1", "A-2"}, f.api.deleteIDs[0])
}

func TestDeleteArticlesEmptyIsNoop(t *testing.T) {
	f := newGatewayFixture(t)

	err := f.gw.DeleteArticles(context.Background(), f.storeID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.api.loginCalls)
	assert.Empty(t, f.api.deleteIDs)
}

// ========== 标签 ==========

func TestFetchLabelsAuthRetryOnce(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	calls := 0
	f.api.labelsFn = func() (json.RawMessage, error) {
		calls++
		if calls == 1 {
			return nil, apiError(http.StatusUnauthorized)
		}
		return json.RawMessage(`{"labelList":[{"labelCode":"L-1"}]}`), nil
	}

	body, err := f.gw.FetchLabels(ctx, f.storeID, 1, 50)
	require.NoError(t, err)
	assert.Contains(t, string(body), "L-1")
	assert.Equal(t, 2, f.api.labelCalls)
	assert.Equal(t, 2, f.api.loginCalls)
}

func TestLinkLabelValidation(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	err := f.gw.LinkLabel(ctx, f.storeID, "", "A-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label_code is required")

	err = f.gw.LinkLabel(ctx, f.storeID, "L-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "article_id is required")

	require.NoError(t, f.gw.LinkLabel(ctx, f.storeID, "L-1", "A-1"))
	assert.Equal(t, 1, f.api.linkCalls)
}

// ========== 健康检查 ==========

func TestCheckCompanyHealth(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	assert.True(t, f.gw.CheckCompanyHealth(ctx, f.tenantID))

	// 未配置租户：false，不抛错
	bareID, err := f.tenants.CreateTenant(ctx, &domain.Tenant{TenantName: "No Vendor Inc"})
	require.NoError(t, err)
	assert.False(t, f.gw.CheckCompanyHealth(ctx, bareID))
}

func TestCheckCompanyHealthLoginFailure(t *testing.T) {
	f := newGatewayFixture(t)
	f.api.loginFn = func() (Token, error) {
		return Token{}, apiError(http.StatusUnauthorized)
	}

	assert.False(t, f.gw.CheckCompanyHealth(context.Background(), f.tenantID))
}

func TestCheckHealthUnknownStore(t *testing.T) {
	f := newGatewayFixture(t)

	assert.False(t, f.gw.CheckHealth(context.Background(), "00000000-0000-0000-0000-00000000dead"))
	assert.True(t, f.gw.CheckHealth(context.Background(), f.storeID))
}

// ========== 登录重试 ==========

func TestLoginRetriesTransientFailures(t *testing.T) {
	f := newGatewayFixture(t)

	// 两次 503 后成功：应观察到 2 次退避，randFloat 固定 0.5 时 jitter 恰为 1.0
	f.api.loginFn = func() (Token, error) {
		f.api.mu.Lock()
		n := f.api.loginCalls
		f.api.mu.Unlock()
		if n <= 2 {
			return Token{}, apiError(http.StatusServiceUnavailable)
		}
		return Token{AccessToken: "tok-fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	token, err := f.gw.GetToken(context.Background(), f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, "tok-fresh", token)
	assert.Equal(t, 3, f.api.loginCalls)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.sleeps, 2)
	assert.Equal(t, 1*time.Second, f.sleeps[0])
	assert.Equal(t, 2*time.Second, f.sleeps[1])
}

func TestLoginRetriesExhausted(t *testing.T) {
	f := newGatewayFixture(t)
	f.api.loginFn = func() (Token, error) {
		return Token{}, apiError(http.StatusTooManyRequests)
	}

	_, err := f.gw.GetToken(context.Background(), f.tenantID)
	require.Error(t, err)
	// 初次 + 3 次重试
	assert.Equal(t, 4, f.api.loginCalls)
	assert.Equal(t, 3, f.sleepCount())
}

func TestLoginAuthFailureNotRetried(t *testing.T) {
	f := newGatewayFixture(t)
	f.api.loginFn = func() (Token, error) {
		return Token{}, apiError(http.StatusUnauthorized)
	}

	_, err := f.gw.GetToken(context.Background(), f.tenantID)
	require.Error(t, err)
	assert.Equal(t, 1, f.api.loginCalls)
	assert.Equal(t, 0, f.sleepCount())
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999} {
		p := retryPolicy{baseDelay: time.Second, randFloat: func() float64 { return r }}
		d := p.backoffDelay(2)
		assert.GreaterOrEqual(t, d, 1600*time.Millisecond)
		assert.Less(t, d, 2400*time.Millisecond)
	}
}

// ========== Article Format 三层查找 ==========

func TestFetchArticleFormatLiveFetchPersistsAndCaches(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	format, err := f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":"articleId","2":"articleName"}`, string(format))
	assert.Equal(t, 1, f.api.formatCalls)
	assert.Equal(t, 1, f.settings.saveCalls)

	// 第二次命中内存层：不读设置、不打厂家
	_, err = f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.formatCalls)
	assert.Equal(t, 1, f.settings.getCalls)
}

func TestFetchArticleFormatServedFromSettings(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	persisted := json.RawMessage(`{"1":"articleId","3":"OCCUPANT"}`)
	require.NoError(t, f.settings.inner.SaveSetting(ctx, f.tenantID, domain.SettingKeyArticleFormat, persisted))

	format, err := f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)
	assert.JSONEq(t, string(persisted), string(format))
	assert.Equal(t, 0, f.api.formatCalls)

	// 持久层结果已回填内存层
	cached, ok := f.gw.formats.Get(f.tenantID)
	require.True(t, ok)
	assert.JSONEq(t, string(persisted), string(cached))
}

func TestFetchArticleFormatMemoryExpiryFallsBack(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	persisted := json.RawMessage(`{"1":"articleId"}`)
	require.NoError(t, f.settings.inner.SaveSetting(ctx, f.tenantID, domain.SettingKeyArticleFormat, persisted))

	f.gw.formats.Set(f.tenantID, json.RawMessage(`{"1":"stale"}`))
	f.gw.formats.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	format, err := f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)
	assert.JSONEq(t, string(persisted), string(format))
	assert.Equal(t, 0, f.api.formatCalls)
}

func TestFetchArticleFormatPersistFailureBestEffort(t *testing.T) {
	f := newGatewayFixture(t)
	f.settings.saveErr = errors.New("db is down")

	format, err := f.gw.FetchArticleFormat(context.Background(), f.storeID)
	require.NoError(t, err)
	assert.NotEmpty(t, format)
	assert.Equal(t, 1, f.api.formatCalls)
}

func TestInvalidateFormatCacheClearsMemoryTier(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	_, err := f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)

	f.gw.InvalidateFormatCache(f.tenantID)

	// 内存层清空后回落到持久层（上一次实取已落库），仍不打厂家
	_, err = f.gw.FetchArticleFormat(ctx, f.storeID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.formatCalls)
	assert.Equal(t, 2, f.settings.getCalls)
}
