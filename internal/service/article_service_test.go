package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
	"github.com/AvivElectis/electisSpace-sub007/internal/store"
)

// mockArticleGateway 可编程的网关 mock，记录每次调用
type mockArticleGateway struct {
	mu          sync.Mutex
	pullCalls   int
	pullResult  []domain.Article
	pullErr     error
	pushBatches [][]domain.Article
	pushErr     error
	deleteIDs   [][]string
}

func (m *mockArticleGateway) PullArticles(_ context.Context, _ string) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pullCalls++
	if m.pullErr != nil {
		return nil, m.pullErr
	}
	return m.pullResult, nil
}

func (m *mockArticleGateway) PushArticles(_ context.Context, _ string, articles []domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushBatches = append(m.pushBatches, articles)
	return nil
}

func (m *mockArticleGateway) DeleteArticles(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteIDs = append(m.deleteIDs, ids)
	return nil
}

// serviceFixture 商品服务测试环境：mock 网关 + 内存空间仓库 + miniredis 快照
type serviceFixture struct {
	svc     *ArticleService
	gateway *mockArticleGateway
	spaces  *repository.MemorySpacesRepo
	redis   *miniredis.Miniredis
	storeID string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	gw := &mockArticleGateway{}
	spaces := repository.NewMemorySpacesRepo()

	return &serviceFixture{
		svc:     NewArticleService(gw, spaces, kv, time.Minute, zap.NewNop()),
		gateway: gw,
		spaces:  spaces,
		redis:   mr,
		storeID: "store-1",
	}
}

func (f *serviceFixture) seedSpace(t *testing.T, code, name, occupant string) {
	t.Helper()
	_, err := f.spaces.CreateSpace(context.Background(), &domain.Space{
		TenantID:     "tenant-1",
		StoreID:      f.storeID,
		SpaceCode:    code,
		SpaceName:    name,
		SpaceType:    "desk",
		Capacity:     1,
		OccupantName: occupant,
	})
	require.NoError(t, err)
}

func TestArticleFromSpace(t *testing.T) {
	occupied := ArticleFromSpace(&domain.Space{
		SpaceCode:    "D-101",
		SpaceName:    "Desk 101",
		SpaceType:    "desk",
		Capacity:     1,
		OccupantName: "Dana",
	})
	assert.Equal(t, "D-101", occupied.ArticleID)
	assert.Equal(t, "Desk 101", occupied.ArticleName)
	assert.Equal(t, "OCCUPIED", occupied.Data["STATUS"])
	assert.Equal(t, "Dana", occupied.Data["OCCUPANT"])
	assert.Equal(t, "desk", occupied.Data["SPACE_TYPE"])
	assert.Equal(t, "1", occupied.Data["CAPACITY"])

	free := ArticleFromSpace(&domain.Space{
		SpaceCode: "CR-1",
		SpaceName: "Boardroom",
		SpaceType: "conference",
		Capacity:  12,
	})
	assert.Equal(t, "FREE", free.Data["STATUS"])
	assert.Equal(t, "12", free.Data["CAPACITY"])
}

func TestSyncStorePushesAllSpaces(t *testing.T) {
	f := newServiceFixture(t)
	f.seedSpace(t, "D-101", "Desk 101", "Dana")
	f.seedSpace(t, "D-102", "Desk 102", "")
	f.seedSpace(t, "CR-1", "Boardroom", "")

	count, err := f.svc.SyncStore(context.Background(), f.storeID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Len(t, f.gateway.pushBatches, 1)
	pushed := f.gateway.pushBatches[0]
	require.Len(t, pushed, 3)
	// MemorySpacesRepo 按 space_code 排序
	assert.Equal(t, "CR-1", pushed[0].ArticleID)
	assert.Equal(t, "D-101", pushed[1].ArticleID)
	assert.Equal(t, "D-102", pushed[2].ArticleID)
}

func TestSyncStoreEmptyIsNoop(t *testing.T) {
	f := newServiceFixture(t)

	count, err := f.svc.SyncStore(context.Background(), f.storeID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.gateway.pushBatches)
}

func TestListArticlesWritesSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pullResult = []domain.Article{
		{ArticleID: "D-101", ArticleName: "Desk 101"},
		{ArticleID: "D-102", ArticleName: "Desk 102"},
	}

	articles, fromCache, err := f.svc.ListArticles(context.Background(), f.storeID, false)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, articles, 2)
	assert.Equal(t, 1, f.gateway.pullCalls)

	// 快照已落 Redis
	raw, err := f.redis.Get("aims:articles:" + f.storeID)
	require.NoError(t, err)
	var snapshot []domain.Article
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	assert.Equal(t, f.gateway.pullResult, snapshot)
}

func TestListArticlesServesCachedSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pullResult = []domain.Article{{ArticleID: "D-101"}}

	_, _, err := f.svc.ListArticles(context.Background(), f.storeID, false)
	require.NoError(t, err)
	require.Equal(t, 1, f.gateway.pullCalls)

	articles, fromCache, err := f.svc.ListArticles(context.Background(), f.storeID, true)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Len(t, articles, 1)
	// 命中快照不打厂家
	assert.Equal(t, 1, f.gateway.pullCalls)
}

func TestListArticlesCacheMissFallsThrough(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pullResult = []domain.Article{{ArticleID: "D-101"}}

	articles, fromCache, err := f.svc.ListArticles(context.Background(), f.storeID, true)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Len(t, articles, 1)
	assert.Equal(t, 1, f.gateway.pullCalls)
}

func TestPushArticlesDropsSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pullResult = []domain.Article{{ArticleID: "D-101"}}

	_, _, err := f.svc.ListArticles(context.Background(), f.storeID, false)
	require.NoError(t, err)
	require.True(t, f.redis.Exists("aims:articles:"+f.storeID))

	err = f.svc.PushArticles(context.Background(), f.storeID, []domain.Article{{ArticleID: "D-200"}})
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("aims:articles:"+f.storeID))
}

func TestPushArticlesGatewayErrorPropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pushErr = errors.New("vendor down")

	err := f.svc.PushArticles(context.Background(), f.storeID, []domain.Article{{ArticleID: "D-1"}})
	assert.ErrorContains(t, err, "vendor down")
}

func TestDeleteArticlesDropsSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.pullResult = []domain.Article{{ArticleID: "D-101"}}

	_, _, err := f.svc.ListArticles(context.Background(), f.storeID, false)
	require.NoError(t, err)

	err = f.svc.DeleteArticles(context.Background(), f.storeID, []string{"D-101"})
	require.NoError(t, err)
	require.Len(t, f.gateway.deleteIDs, 1)
	assert.Equal(t, []string{"D-101"}, f.gateway.deleteIDs[0])
	assert.False(t, f.redis.Exists("aims:articles:"+f.storeID))
}

func TestImportArticlesRoundTrip(t *testing.T) {
	f := newServiceFixture(t)

	file, err := GenerateArticleExport([]domain.Article{
		{ArticleID: "D-101", ArticleName: "Desk 101", Data: map[string]string{"STATUS": "FREE"}},
		{ArticleID: "D-102", ArticleName: "Desk 102", Data: map[string]string{"STATUS": "OCCUPIED", "OCCUPANT": "Dana"}},
	})
	require.NoError(t, err)

	count, err := f.svc.ImportArticles(context.Background(), f.storeID, file)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, f.gateway.pushBatches, 1)
	pushed := f.gateway.pushBatches[0]
	require.Len(t, pushed, 2)
	assert.Equal(t, "D-101", pushed[0].ArticleID)
	assert.Equal(t, "FREE", pushed[0].Data["STATUS"])
	assert.Equal(t, "Dana", pushed[1].Data["OCCUPANT"])
}

func TestImportArticlesEmptyFile(t *testing.T) {
	f := newServiceFixture(t)

	file, err := GenerateArticleImportTemplate()
	require.NoError(t, err)

	count, err := f.svc.ImportArticles(context.Background(), f.storeID, file)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.gateway.pushBatches)
}
