package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nexo/config"
	"nexo/internal/auth"
	"nexo/internal/domain"
	"nexo/pkg/idempotency"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "nexo"}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func bearer(t *testing.T, id uint, role string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(testJWT(), id, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(testJWT()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetPrincipalID(c), "role": GetRole(c)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"Missing", "", http.StatusUnauthorized},
		{"NotBearer", "Token abc", http.StatusUnauthorized},
		{"Garbage", "Bearer abc", http.StatusUnauthorized},
		{"Valid", bearer(t, 7, domain.RolePartner), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"id":7,"role":"PARTNER"}`, w.Body.String())
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthRequired(testJWT()), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/partner", AuthRequired(testJWT()), PartnerRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(path, header string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	admin := bearer(t, 1, domain.RoleAdmin)
	partner := bearer(t, 2, domain.RolePartner)

	assert.Equal(t, http.StatusNoContent, do("/admin", admin))
	assert.Equal(t, http.StatusForbidden, do("/admin", partner))
	assert.Equal(t, http.StatusNoContent, do("/partner", partner))
	assert.Equal(t, http.StatusForbidden, do("/partner", admin))
}

func TestRateLimit(t *testing.T) {
	limiter := NewInMemoryRateLimiter(2, time.Minute)
	defer limiter.Stop()

	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// the window is per key
	assert.True(t, limiter.Allow("someone-else"))
	limiter.Stop()
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"info"`)
	assert.Contains(t, lines[0], `"path":"/ok"`)
	assert.Contains(t, lines[1], `"level":"error"`)
	assert.Contains(t, lines[1], `"status":500`)
}

func idempotentRouter(t *testing.T, hits *int32, status int) *gin.Engine {
	t.Helper()
	store, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := gin.New()
	r.POST("/accept", Idempotency(store, quietLogger()), func(c *gin.Context) {
		n := atomic.AddInt32(hits, 1)
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(status, gin.H{"call": n, "echo": string(body)})
	})
	return r
}

func post(r http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/accept", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var hits int32
	r := idempotentRouter(t, &hits, http.StatusOK)

	first := post(r, "k1", `{"partner_id":1}`)
	second := post(r, "k1", `{"partner_id":1}`)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Empty(t, first.Header().Get(HeaderReplayed))
	assert.Contains(t, first.Body.String(), `"echo":"{\"partner_id\":1}"`)
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	var hits int32
	r := idempotentRouter(t, &hits, http.StatusOK)

	post(r, "k1", `{"partner_id":1}`)
	w := post(r, "k1", `{"partner_id":2}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	var hits int32
	r := idempotentRouter(t, &hits, http.StatusOK)

	post(r, "", `{}`)
	post(r, "", `{}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	var hits int32
	r := idempotentRouter(t, &hits, http.StatusInternalServerError)

	post(r, "k1", `{}`)
	w := post(r, "k1", `{}`)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Empty(t, w.Header().Get(HeaderReplayed))
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	var hits int32
	r := idempotentRouter(t, &hits, http.StatusPaymentRequired)

	post(r, "k1", `{}`)
	w := post(r, "k1", `{}`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}
