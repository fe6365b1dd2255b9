package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestbook_SignFlash(t *testing.T) {
	gb := &fakeGuestbook{}
	r := newTestEngine()
	h := NewGuestbookHandler(gb)
	r.GET("/guestbook", h.Show)
	r.POST("/guestbook", h.Sign)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/guestbook", url.Values{"name": {"anon"}, "message": {"hello"}}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/guestbook", w.Header().Get("Location"))
	require.Len(t, gb.entries, 1)

	req := httptest.NewRequest(http.MethodGet, "/guestbook", nil)
	cookiesFrom(w.Result(), req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flashes=Thanks for signing the guestbook;")
}

func TestGuestbook_Errors(t *testing.T) {
	gb := &fakeGuestbook{err: &services.ValidationError{Field: "name", Message: "Name is required"}}
	r := newTestEngine()
	h := NewGuestbookHandler(gb)
	r.POST("/guestbook", h.Sign)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/guestbook", url.Values{"message": {"hi"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "view=guestbook.html")
	assert.Contains(t, w.Body.String(), "error=Name is required")

	req := postForm("/guestbook", url.Values{"message": {"hi"}})
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Error.Code)
	assert.Equal(t, "Name is required", body.Error.Message)
}

func newAuthEngine(accounts *fakeAccounts) *gin.Engine {
	r := newTestEngine()
	r.Use(middleware.LoadUser(accounts))
	h := NewAuthHandler(accounts)
	r.GET("/auth", h.ShowAuth)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/logout", h.Logout)
	r.GET("/settings", middleware.AuthRequired(), h.Settings)
	return r
}

func TestAuth_LoginFlow(t *testing.T) {
	accounts := &fakeAccounts{users: map[string]*models.User{"alice": {ID: 1, Username: "alice"}}}
	r := newAuthEngine(accounts)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/auth/login", url.Values{"username": {"alice"}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error=Invalid username or password")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/auth/login", url.Values{"username": {"alice"}, "password": {"secret1"}}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	login := w.Result()

	// 已登录访问 /auth 跳到设置页
	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	cookiesFrom(login, req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/settings", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/settings", nil)
	cookiesFrom(login, req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "view=auth/settings.html")
}

func TestAuth_SettingsRequiresLogin(t *testing.T) {
	r := newAuthEngine(&fakeAccounts{users: map[string]*models.User{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "view=auth/auth.html")
}

func TestAuth_RegisterLogsIn(t *testing.T) {
	accounts := &fakeAccounts{users: map[string]*models.User{}}
	r := newAuthEngine(accounts)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/auth/register", url.Values{"username": {"bob"}, "password": {"secret1"}}))
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, accounts.users, "bob")

	req := httptest.NewRequest(http.MethodGet, "/settings", nil)
	cookiesFrom(w.Result(), req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTitle_FetchTitle(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		api  string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"invalid url", &services.ValidationError{Field: "url", Message: "Please enter a valid URL"}, http.StatusBadRequest, "validation"},
		{"upstream", fmt.Errorf("get: %w", services.ErrUpstreamStatus), http.StatusBadGateway, "upstream"},
		{"no title", services.ErrNoTitle, http.StatusNotFound, "not_found"},
		{"timeout", services.ErrFetchTimeout, http.StatusGatewayTimeout, "timeout"},
		{"other", errBoom, http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestEngine()
			r.POST("/api/fetch-title", NewTitleHandler(&fakeFetcher{title: "Hidden Wiki", err: tc.err}).FetchTitle)

			req := httptest.NewRequest(http.MethodPost, "/api/fetch-title", strings.NewReader(`{"url":"http://wiki.onion/"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tc.code, w.Code)
			if tc.err == nil {
				assert.JSONEq(t, `{"title":"Hidden Wiki"}`, w.Body.String())
				return
			}
			var body middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.api, body.Error.Code)
		})
	}
}

func TestMisc_Healthz(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	} {
		r := newTestEngine()
		r.GET("/healthz", NewMiscHandler(fakePinger{err: tc.err}).Healthz)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, tc.code, w.Code)
	}
}

func TestMisc_RawJSON(t *testing.T) {
	r := newTestEngine()
	r.GET("/raw", NewMiscHandler(fakePinger{}).Raw)

	req := httptest.NewRequest(http.MethodGet, "/raw", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "127.0.0.1", body["peer"])
	assert.Len(t, body["fingerprint"], 8)
}

func TestMisc_Theme(t *testing.T) {
	r := newTestEngine()
	misc := NewMiscHandler(fakePinger{})
	r.POST("/theme", misc.Theme)
	r.GET("/raw", misc.Raw)

	req := postForm("/theme", url.Values{"theme": {"dark"}})
	req.Header.Set("Referer", "http://x.onion/raw")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/raw", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/raw", nil)
	cookiesFrom(w.Result(), req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "theme=dark")

	// 未知主题回落为 light
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postForm("/theme", url.Values{"theme": {"neon"}}))
	req = httptest.NewRequest(http.MethodGet, "/raw", nil)
	cookiesFrom(w.Result(), req)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "theme=light")
}
