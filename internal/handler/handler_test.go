package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shorturl-analytics/internal/service"
	"shorturl-analytics/internal/shortcode"
	"shorturl-analytics/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// setupTest 初始化一个干净的路由与内存存储
func setupTest(t *testing.T, baseURL string) (*gin.Engine, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	logger := zap.NewNop().Sugar()
	svc := service.New(service.Config{
		Store:     store.New(store.WithClock(clock.Now)),
		Generator: shortcode.NewGenerator(logger),
		Logger:    logger,
	})

	router := gin.New()
	// 与 main 一致：默认不信任代理头
	require.NoError(t, router.SetTrustedProxies(nil))
	RegisterRoutes(router, NewShortLinkHandler(svc, baseURL, logger))
	return router, clock
}

func doRaw(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/shorturls", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// TestShortLinkHandler_Integration 创建、访问三次、查询统计的完整流程
func TestShortLinkHandler_Integration(t *testing.T) {
	router, _ := setupTest(t, "https://sho.rt")

	w := doJSON(router, http.MethodPost, "/shorturls", gin.H{
		"url":       "https://example.org/a",
		"validity":  1,
		"shortcode": "promo1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[CreateShortLinkResponse](t, w)
	assert.Equal(t, "https://sho.rt/promo1", created.ShortLink)
	assert.Equal(t, "2025-01-01T12:01:00.000Z", created.Expiry)

	referers := []string{"https://a.example", "", "https://c.example"}
	for _, ref := range referers {
		req := httptest.NewRequest(http.MethodGet, "/promo1", nil)
		if ref != "" {
			req.Header.Set("Referer", ref)
		}
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.org/a", w.Header().Get("Location"))
	}

	w = doJSON(router, http.MethodGet, "/shorturls/promo1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[StatsResponse](t, w)
	assert.Equal(t, "promo1", stats.Shortcode)
	assert.Equal(t, "https://example.org/a", stats.OriginalURL)
	assert.Equal(t, "2025-01-01T12:00:00.000Z", stats.CreatedAt)
	assert.False(t, stats.Expired)
	assert.Equal(t, 3, stats.TotalClicks)
	require.Len(t, stats.Clicks, 3)
	for i, click := range stats.Clicks {
		if referers[i] == "" {
			assert.Nil(t, click.Referer)
		} else {
			require.NotNil(t, click.Referer)
			assert.Equal(t, referers[i], *click.Referer)
		}
		require.NotNil(t, click.IP)
		assert.Equal(t, "203.0.113.7", *click.IP)
		assert.Nil(t, click.Geo)
	}
}

func TestCreateShortLink_GeneratedCodeAndDefaultValidity(t *testing.T) {
	router, _ := setupTest(t, "")

	w := doJSON(router, http.MethodPost, "/shorturls", gin.H{"url": "https://example.org"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[CreateShortLinkResponse](t, w)

	// 未配置 baseURL 时使用请求 Host
	require.True(t, strings.HasPrefix(created.ShortLink, "http://example.com/"), created.ShortLink)
	code := strings.TrimPrefix(created.ShortLink, "http://example.com/")
	assert.Len(t, code, shortcode.CodeLength)
	assert.Equal(t, "2025-01-01T12:30:00.000Z", created.Expiry)
}

func TestCreateShortLink_Conflict(t *testing.T) {
	router, _ := setupTest(t, "")

	body := gin.H{"url": "https://example.org", "shortcode": "taken"}
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/shorturls", body).Code)

	w := doJSON(router, http.MethodPost, "/shorturls", gin.H{"url": "https://other.example", "shortcode": "taken"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SHORTCODE_IN_USE", decode[ErrorResponse](t, w).Error)
}

func TestCreateShortLink_InvalidInput(t *testing.T) {
	router, _ := setupTest(t, "")

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{name: "缺少 url", body: gin.H{}, field: "url"},
		{name: "url 格式错误", body: gin.H{"url": "not a url"}, field: "url"},
		{name: "有效期为 0", body: gin.H{"url": "https://example.org", "validity": 0}, field: "validity"},
		{name: "有效期超过上限", body: gin.H{"url": "https://example.org", "validity": 1441}, field: "validity"},
		{name: "有效期为负数", body: gin.H{"url": "https://example.org", "validity": -5}, field: "validity"},
		{name: "短码太短", body: gin.H{"url": "https://example.org", "shortcode": "ab"}, field: "shortcode"},
		{name: "短码含非法字符", body: gin.H{"url": "https://example.org", "shortcode": "bad code!"}, field: "shortcode"},
		{name: "有效期不是整数", body: gin.H{"url": "https://example.org", "validity": 1.5}, field: "validity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/shorturls", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, "INVALID_INPUT", resp.Error)
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tt.field, resp.Details[0].Field)
		})
	}

	t.Run("请求体不是 JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/shorturls", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", decode[ErrorResponse](t, w).Error)
	})
}

func TestUnknownShortcode(t *testing.T) {
	router, _ := setupTest(t, "")

	w := doJSON(router, http.MethodGet, "/shorturls/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Error)

	w = doJSON(router, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[ErrorResponse](t, w).Error)
}

func TestExpiredLink(t *testing.T) {
	router, clock := setupTest(t, "")

	body := gin.H{"url": "https://example.org", "validity": 1, "shortcode": "brief"}
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/shorturls", body).Code)

	clock.Advance(61 * time.Second)

	w := doJSON(router, http.MethodGet, "/brief", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "EXPIRED", decode[ErrorResponse](t, w).Error)

	// 过期后统计仍可查询，且没有记录点击
	w = doJSON(router, http.MethodGet, "/shorturls/brief", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[StatsResponse](t, w)
	assert.True(t, stats.Expired)
	assert.Zero(t, stats.TotalClicks)
	assert.Empty(t, stats.Clicks)

	// 过期的短码不能再次使用
	w = doJSON(router, http.MethodPost, "/shorturls", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthAndNoRoute(t *testing.T) {
	router, _ := setupTest(t, "")

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Zero(t, health.Links)

	w = doJSON(router, http.MethodGet, "/a/b/c", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", decode[ErrorResponse](t, w).Error)
}

func TestRedirect_IgnoresForwardedHeaders(t *testing.T) {
	router, _ := setupTest(t, "")
	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/shorturls", gin.H{"url": "https://example.org", "shortcode": "spoof"}).Code)

	req := httptest.NewRequest(http.MethodGet, "/spoof", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-IP", "5.6.7.8")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)

	stats := decode[StatsResponse](t, doJSON(router, http.MethodGet, "/shorturls/spoof", nil))
	require.Len(t, stats.Clicks, 1)
	require.NotNil(t, stats.Clicks[0].IP)
	assert.Equal(t, "203.0.113.7", *stats.Clicks[0].IP, "客户端伪造的转发头不应生效")
}

func TestCreateShortLink_ExplicitEmptyOrNull(t *testing.T) {
	router, _ := setupTest(t, "")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "空短码", body: `{"url":"https://example.org","shortcode":""}`, field: "shortcode"},
		{name: "短码为 null", body: `{"url":"https://example.org","shortcode":null}`, field: "shortcode"},
		{name: "有效期为 null", body: `{"url":"https://example.org","validity":null}`, field: "validity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRaw(router, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, "INVALID_INPUT", resp.Error)
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tt.field, resp.Details[0].Field)
		})
	}

	health := decode[HealthResponse](t, doJSON(router, http.MethodGet, "/health", nil))
	assert.Zero(t, health.Links, "无效请求不应创建记录")
}

func TestCreateShortLink_IntegralFloatValidity(t *testing.T) {
	router, _ := setupTest(t, "")

	w := doRaw(router, `{"url":"https://example.org","validity":30.0,"shortcode":"float30"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "2025-01-01T12:30:00.000Z", decode[CreateShortLinkResponse](t, w).Expiry)
}
