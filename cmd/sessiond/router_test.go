package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraha-app/sessionkit"
	"github.com/saraha-app/sessionkit/middleware"
	"github.com/saraha-app/sessionkit/notify"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type inbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (i *inbox) deliver(_ context.Context, to, _, body string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last[to] = codePattern.FindString(body)
	return nil
}

func (i *inbox) code(to string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last[to]
}

func newTestServer(t *testing.T) (*httptest.Server, *inbox) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := sessionkit.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789-abcdefghijkl")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789-abcdefghijk")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	box := &inbox{last: map[string]string{}}
	engine, err := sessionkit.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithNotifier(notify.Func(box.deliver)).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(newRouter(engine, routerOptions{}))
	t.Cleanup(srv.Close)
	return srv, box
}

func post(t *testing.T, url string, body any, mutate ...func(*http.Request)) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestRouterSessionLifecycle(t *testing.T) {
	srv, box := newTestServer(t)

	resp := post(t, srv.URL+"/auth/register", map[string]string{
		"username": "mona", "email": "mona@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/verify", map[string]string{
		"email": "mona@example.com", "code": box.code("mona@example.com"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess sessionkit.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	assert.Equal(t, sess.Tokens.RefreshToken, cookie.Value)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Tokens.AccessToken)
	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)
	var view sessionkit.AccountView
	require.NoError(t, json.NewDecoder(me.Body).Decode(&view))
	assert.Equal(t, "mona", view.Username)

	// Cookie wins over an empty body.
	resp = post(t, srv.URL+"/auth/refresh", nil, func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := refreshCookie(resp)
	require.NotNil(t, rotated)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the first cookie is reuse.
	resp = post(t, srv.URL+"/auth/refresh", nil, func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body middleware.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "token_reuse_detected", body.Code)

	resp = post(t, srv.URL+"/auth/refresh", refreshBody{RefreshToken: rotated.Value})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouterErrorsAndGuards(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/auth/login", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/logout-all", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/login", map[string]string{"bogus": "field"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/password/forgot", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/federated/google", map[string]string{"assertion": "x"})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp = post(t, srv.URL+"/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out sessionkit.LogoutResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.AccessRevoked)
	assert.False(t, out.RefreshRevoked)
}
