package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	authdomain "marketplace-backend/internal/auth/domain"
	authrepo "marketplace-backend/internal/auth/repository"
	authusecase "marketplace-backend/internal/auth/usecase"
	cachedomain "marketplace-backend/internal/cache/domain"
	cacherepo "marketplace-backend/internal/cache/repository"
	cacheusecase "marketplace-backend/internal/cache/usecase"
	searchdomain "marketplace-backend/internal/search/domain"
	searchrepo "marketplace-backend/internal/search/repository"
	searchusecase "marketplace-backend/internal/search/usecase"
	"marketplace-backend/internal/testutil"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/productsearch"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testApp struct {
	engine       *gin.Engine
	db           *gorm.DB
	upstreamHits *int32
}

func newTestApp(t *testing.T) *testApp {
	gin.SetMode(gin.TestMode)

	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","data":{"products":[` +
			`{"product_id":"1","product_title":"Runner"},` +
			`{"product_id":"2","product_title":"Trail"},` +
			`{"product_id":"3","product_title":"Court"}]}}`))
	}))
	t.Cleanup(upstream.Close)

	db := testutil.NewTestDB(t,
		&authdomain.User{},
		&searchdomain.SearchHistory{},
		&cachedomain.CachedSearch{},
	)

	cfg := &config.Config{
		SessionSecret:  "test-secret",
		AllowedOrigins: []string{"https://shop.example.com"},
		SessionTTL:     time.Hour,
		CacheTTL:       24 * time.Hour,
		HistoryLimit:   10,
	}

	searcher := productsearch.NewClient(productsearch.Config{
		BaseURL: upstream.URL,
		APIKey:  "key",
		Host:    "search.test",
		Timeout: 2 * time.Second,
	})
	cache := cacheusecase.NewCacheUsecase(cacherepo.NewGormBackend(db), nil, cfg.CacheTTL)
	authUc := authusecase.NewAuthUsecase(authrepo.NewUserRepository(db), nil, cfg)
	searchUc := searchusecase.NewSearchUsecase(searcher, cache, searchrepo.NewHistoryRepository(db), nil, cfg.HistoryLimit)

	return &testApp{
		engine:       NewHandler(authUc, searchUc, cfg).Engine(),
		db:           db,
		upstreamHits: &hits,
	}
}

func (a *testApp) postForm(path string, form url.Values, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) registerAndLogin(t *testing.T, username, email string) string {
	w := a.postForm("/register", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.postForm("/login", url.Values{"email": {email}, "password": {"secret123"}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

type searchBody struct {
	Products []map[string]any `json:"products"`
	CacheKey string           `json:"cache_key"`
	Cached   bool             `json:"cached"`
	Page     int              `json:"page"`
	Country  string           `json:"country"`
}

func TestSearchIsServedFromCacheOnRepeat(t *testing.T) {
	app := newTestApp(t)
	form := url.Values{"query": {"shoes"}, "page": {"1"}, "country": {"us"}}

	w := app.postForm("/", form, "")
	require.Equal(t, http.StatusOK, w.Code)

	var first searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Products, 3)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, "us", first.Country)

	var rows int64
	require.NoError(t, app.db.Model(&cachedomain.CachedSearch{}).Where("cache_key = ?", first.CacheKey).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	w = app.postForm("/", form, "")
	require.Equal(t, http.StatusOK, w.Code)

	var second searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Products, second.Products)
	assert.Equal(t, int32(1), atomic.LoadInt32(app.upstreamHits))
}

func TestSearchForceReloadCallsUpstreamAgain(t *testing.T) {
	app := newTestApp(t)
	form := url.Values{"query": {"shoes"}}

	app.postForm("/", form, "")
	form.Set("force_reload", "true")
	w := app.postForm("/", form, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(app.upstreamHits))
}

func TestDuplicateUsernameIsRejected(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "ana", "ana@example.com")

	w := app.postForm("/register", url.Values{
		"username":         {"ana"},
		"email":            {"other@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	}, "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Username already exists")

	var count int64
	require.NoError(t, app.db.Model(&authdomain.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	w := app.postForm("/register", url.Values{
		"username":         {"ana"},
		"email":            {"ana@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"different"},
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFailureMessage(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "ana", "ana@example.com")

	w := app.postForm("/login", url.Values{"email": {"ana@example.com"}, "password": {"nope"}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Login failed")
}

func TestLoginSetsSessionCookie(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "ana", "ana@example.com")

	w := app.postForm("/login", url.Values{"email": {"ana@example.com"}, "password": {"secret123"}}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	app.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountRequiresLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/account", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login`)

	w = app.get("/admin/clear-cache", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticatedSearchAppearsInAccountHistory(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "ana", "ana@example.com")

	w := app.postForm("/", url.Values{"query": {"shoes"}, "country": {"ca"}}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.get("/account", token)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		RecentSearches []struct {
			Query      string            `json:"query"`
			Parameters map[string]string `json:"parameters"`
		} `json:"recent_searches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.RecentSearches, 1)
	assert.Equal(t, "shoes", body.RecentSearches[0].Query)
	assert.Equal(t, "ca", body.RecentSearches[0].Parameters["country"])
}

func TestClearCacheRemovesExpiredRows(t *testing.T) {
	app := newTestApp(t)
	token := app.registerAndLogin(t, "ana", "ana@example.com")

	past := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, app.db.Create(&cachedomain.CachedSearch{
		CacheKey: "stale", Results: "[]", CreatedAt: past, ExpiresAt: past.Add(24 * time.Hour),
	}).Error)

	w := app.get("/admin/clear-cache", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":1`)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestLogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/logout", "")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestStaticPagesHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/about", "/contact", "/privacy", "/terms", "/faq"} {
		w := app.get(path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"title"`, path)
	}

	w := app.get("/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	app.postForm("/", url.Values{"query": {"lamp"}}, "")
	w = app.get("/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marketplace_upstream_requests_total")
}

func TestCORSOnlyEchoesAllowedOrigins(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}
