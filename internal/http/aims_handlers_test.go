package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AvivElectis/electisSpace-sub007/internal/aims"
	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
	"github.com/AvivElectis/electisSpace-sub007/internal/repository"
	"github.com/AvivElectis/electisSpace-sub007/internal/service"
)

// mockGateway 同时充当 Handler 的 AimsGateway 和 ArticleService 的 ArticleGateway
type mockGateway struct {
	mu          sync.Mutex
	pullResult  []domain.Article
	pullErr     error
	pushBatches [][]domain.Article
	deleteIDs   [][]string
	linkCalls   []string
	blinkCalls  []string
	healthy     bool
}

func (m *mockGateway) PullArticles(_ context.Context, _ string) ([]domain.Article, error) {
	if m.pullErr != nil {
		return nil, m.pullErr
	}
	return m.pullResult, nil
}

func (m *mockGateway) PushArticles(_ context.Context, _ string, articles []domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushBatches = append(m.pushBatches, articles)
	return nil
}

func (m *mockGateway) DeleteArticles(_ context.Context, _ string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteIDs = append(m.deleteIDs, ids)
	return nil
}

func (m *mockGateway) FetchArticleFormat(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"1":"articleId"}`), nil
}

func (m *mockGateway) FetchLabels(_ context.Context, _ string, _, _ int) (json.RawMessage, error) {
	return json.RawMessage(`{"labelList":[{"labelCode":"L-1"}]}`), nil
}

func (m *mockGateway) FetchUnassignedLabels(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"labelList":[]}`), nil
}

func (m *mockGateway) FetchLabelImages(_ context.Context, _, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"images":[]}`), nil
}

func (m *mockGateway) LinkLabel(_ context.Context, _, labelCode, articleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCalls = append(m.linkCalls, labelCode+":"+articleID)
	return nil
}

func (m *mockGateway) UnlinkLabel(_ context.Context, _, _ string) error { return nil }

func (m *mockGateway) BlinkLabel(_ context.Context, _, labelCode, color string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blinkCalls = append(m.blinkCalls, labelCode+":"+color)
	return nil
}

func (m *mockGateway) FetchLabelTypeInfo(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"types":[]}`), nil
}

func (m *mockGateway) PushLabelImage(_ context.Context, _, _ string, _ int, _ string) error {
	return nil
}

func (m *mockGateway) FetchDitherPreview(_ context.Context, _, _, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"preview":"..."}`), nil
}

func (m *mockGateway) CheckHealth(_ context.Context, _ string) bool        { return m.healthy }
func (m *mockGateway) CheckCompanyHealth(_ context.Context, _ string) bool { return m.healthy }

// newMultipartFile 组装单文件 multipart 请求体，返回 Content-Type
func newMultipartFile(t *testing.T, buf *bytes.Buffer, field, filename string, data []byte) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}

func newAimsHandler(gw *mockGateway) *AimsHandler {
	articles := service.NewArticleService(gw, repository.NewMemorySpacesRepo(), nil, 0, zap.NewNop())
	return NewAimsHandler(gw, articles, zap.NewNop())
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result[map[string]any] {
	t.Helper()
	var out Result[map[string]any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAimsHandlerListArticles(t *testing.T) {
	gw := &mockGateway{pullResult: []domain.Article{{ArticleID: "D-1"}, {ArticleID: "D-2"}}}
	h := newAimsHandler(gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/stores/store-1/articles", nil))

	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.EqualValues(t, 2, out.Result["total"])
	assert.Equal(t, false, out.Result["from_cache"])
}

func TestAimsHandlerListArticlesNotConfigured(t *testing.T) {
	gw := &mockGateway{pullErr: aims.ErrNotConfigured}
	h := newAimsHandler(gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/stores/store-1/articles", nil))

	var out Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, ResultError, out.Code)
	assert.Contains(t, out.Message, "No AIMS credentials configured")
}

func TestAimsHandlerPushArticles(t *testing.T) {
	gw := &mockGateway{}
	h := newAimsHandler(gw)

	body := `{"articleList":[{"articleId":"D-1"},{"articleId":"D-2"}]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/aims/api/v1/stores/store-1/articles", strings.NewReader(body)))

	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.EqualValues(t, 2, out.Result["pushed"])
	require.Len(t, gw.pushBatches, 1)
	assert.Len(t, gw.pushBatches[0], 2)
}

func TestAimsHandlerDeleteArticlesRequiresIDs(t *testing.T) {
	gw := &mockGateway{}
	h := newAimsHandler(gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/aims/api/v1/stores/store-1/articles", strings.NewReader(`{}`)))

	var out Result[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, ResultError, out.Code)
	assert.Empty(t, gw.deleteIDs)
}

func TestAimsHandlerLinkLabel(t *testing.T) {
	gw := &mockGateway{}
	h := newAimsHandler(gw)

	body := `{"labelCode":"L-1","articleId":"D-1"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/aims/api/v1/stores/store-1/labels/link", strings.NewReader(body)))

	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, []string{"L-1:D-1"}, gw.linkCalls)
}

func TestAimsHandlerBlinkLabel(t *testing.T) {
	gw := &mockGateway{}
	h := newAimsHandler(gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/aims/api/v1/stores/store-1/labels/led",
		strings.NewReader(`{"labelCode":"L-1","color":"BLUE"}`)))

	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, []string{"L-1:BLUE"}, gw.blinkCalls)
}

func TestAimsHandlerHealth(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		gw := &mockGateway{healthy: healthy}
		h := newAimsHandler(gw)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/stores/store-1/health", nil))

		// 探测路径永不抛错：HTTP 200 + ok 布尔
		assert.Equal(t, http.StatusOK, rec.Code)
		out := decodeResult(t, rec)
		assert.Equal(t, ResultSuccess, out.Code)
		assert.Equal(t, healthy, out.Result["ok"])

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/companies/tenant-1/health", nil))
		out = decodeResult(t, rec)
		assert.Equal(t, healthy, out.Result["ok"])
	}
}

func TestAimsHandlerExportArticles(t *testing.T) {
	gw := &mockGateway{pullResult: []domain.Article{{ArticleID: "D-1", ArticleName: "Desk 1"}}}
	h := newAimsHandler(gw)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/stores/store-1/articles/export", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestAimsHandlerImportArticles(t *testing.T) {
	gw := &mockGateway{}
	h := newAimsHandler(gw)

	file, err := service.GenerateArticleExport([]domain.Article{{ArticleID: "D-1", ArticleName: "Desk 1"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := newMultipartFile(t, &buf, "file", "articles.xlsx", file)

	req := httptest.NewRequest(http.MethodPost, "/aims/api/v1/stores/store-1/articles/import", &buf)
	req.Header.Set("Content-Type", mw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := decodeResult(t, rec)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.EqualValues(t, 1, out.Result["imported"])
	require.Len(t, gw.pushBatches, 1)
}

func TestAimsHandlerUnknownRoute(t *testing.T) {
	h := newAimsHandler(&mockGateway{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/aims/api/v1/stores/store-1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
