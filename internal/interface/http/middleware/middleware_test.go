package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/testutil"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(t *testing.T) (*gin.Engine, *jwt.Manager, *redis.SessionStore) {
	t.Helper()

	_, client := testutil.NewTestRedis(t)
	manager := jwt.NewManager("middleware-secret", time.Hour)
	sessions := redis.NewSessionStore(client)
	auth := NewAuthMiddleware(manager, sessions)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "user_id": MustGetUserID(c), "role": string(GetRole(c))})
	})
	r.GET("/admin", auth.RequireAuth(), RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0})
	})
	return r, manager, sessions
}

func serve(r http.Handler, method, path, token string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func code(body map[string]any) int {
	v, _ := body["code"].(float64)
	return int(v)
}

func TestRequireAuth(t *testing.T) {
	r, manager, sessions := newAuthEngine(t)

	token, err := manager.GenerateToken(7, "an@example.com", "An", string(user.RoleMember))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", apperrors.ErrCodeUnauthorized},
		{"not bearer", "Basic abc", apperrors.ErrCodeInvalidToken},
		{"empty bearer", "Bearer ", apperrors.ErrCodeInvalidToken},
		{"garbage token", "Bearer abc.def.ghi", apperrors.ErrCodeInvalidToken},
		{"valid", "Bearer " + token.AccessToken, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(r, http.MethodGet, "/me", tt.header)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, code(body))
		})
	}

	_, body := serve(r, http.MethodGet, "/me", "Bearer "+token.AccessToken)
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, "member", body["role"])

	// 加入黑名单后拒绝
	require.NoError(t, sessions.AddToBlacklist(context.Background(), token.AccessToken, time.Hour))
	_, body = serve(r, http.MethodGet, "/me", "Bearer "+token.AccessToken)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, code(body))
}

func TestRequireAuth_RevokedUser(t *testing.T) {
	r, manager, sessions := newAuthEngine(t)
	ctx := context.Background()

	token, err := manager.GenerateToken(7, "an@example.com", "An", string(user.RoleMember))
	require.NoError(t, err)

	// 吊销时刻早于签发时刻:不影响
	require.NoError(t, sessions.RevokeUser(ctx, 7, time.Now().Add(-time.Hour), time.Hour))
	_, body := serve(r, http.MethodGet, "/me", "Bearer "+token.AccessToken)
	assert.Equal(t, 0, code(body))

	require.NoError(t, sessions.RevokeUser(ctx, 7, time.Now().Add(2*time.Second), time.Hour))
	_, body = serve(r, http.MethodGet, "/me", "Bearer "+token.AccessToken)
	assert.Equal(t, apperrors.ErrCodeTokenExpired, code(body))

	// 其他用户不受影响
	other, err := manager.GenerateToken(8, "binh@example.com", "Binh", string(user.RoleMember))
	require.NoError(t, err)
	_, body = serve(r, http.MethodGet, "/me", "Bearer "+other.AccessToken)
	assert.Equal(t, 0, code(body))
}

func TestRequireRole(t *testing.T) {
	r, manager, _ := newAuthEngine(t)

	member, err := manager.GenerateToken(7, "an@example.com", "An", string(user.RoleMember))
	require.NoError(t, err)
	admin, err := manager.GenerateToken(1, "librarian@example.com", "Thu Thu", string(user.RoleAdmin))
	require.NoError(t, err)

	_, body := serve(r, http.MethodGet, "/admin", "Bearer "+member.AccessToken)
	assert.Equal(t, apperrors.ErrCodeForbidden, code(body))

	_, body = serve(r, http.MethodGet, "/admin", "Bearer "+admin.AccessToken)
	assert.Equal(t, 0, code(body))
}

func TestCORS(t *testing.T) {
	cfg := config.CORSConfig{
		Enabled:       true,
		AllowOrigins:  []string{"http://localhost:3000"},
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        600,
	}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
