package middlewares

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("text", "error")
	utils.SetJWTSecret("middleware-test-secret")
	os.Exit(m.Run())
}

func protectedRouter(roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/admin/thing", AuthMiddleware(), RequireRoles(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id"), "role": c.GetString("role")})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	owner, err := utils.GenerateToken(7, "owner", time.Hour)
	require.NoError(t, err)
	chef, err := utils.GenerateToken(8, "chef", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(7, "owner", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", owner, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"role not allowed", "Bearer " + chef, http.StatusForbidden},
		{"owner", "Bearer " + owner, http.StatusOK},
	}

	r := protectedRouter("owner", "staff")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/thing", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/kds/ws", WebSocketAuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("role"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kds/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken(3, "chef", time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/kds/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chef", w.Body.String())
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.allow("10.0.0.1"), "one token refilled")

	now = now.Add(2 * time.Minute)
	rl.allow("10.0.0.3")
	rl.mu.Lock()
	assert.Len(t, rl.clients, 1, "idle buckets are evicted")
	rl.mu.Unlock()
}

func TestPaymentRateLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/payments/webhook", PaymentSecurityHeaders(), PaymentRateLimiter(0.001, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/webhook", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/webhook", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSecurityHeadersHSTSOnlyOverTLS(t *testing.T) {
	r := gin.New()
	r.GET("/ping", SecurityHeaders(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}
