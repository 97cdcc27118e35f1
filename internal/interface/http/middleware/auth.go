package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
)

// Context键
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxName   = "name"
	ctxRole   = "role"
	ctxToken  = "access_token"
)

// AuthMiddleware JWT认证中间件
// 设计说明:
// 1. 从Header提取Token
// 2. 检查Token黑名单(已登出)
// 3. 验证签名与有效期
// 4. 拒绝用户吊销时刻之前签发的Token
// 5. 将借阅人身份与角色注入Context
type AuthMiddleware struct {
	jwtManager   *jwt.Manager
	sessionStore *redis.SessionStore
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, sessionStore *redis.SessionStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
	}
}

// RequireAuth 要求登录
// 使用方式:
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
//	authorized.GET("/borrows/me", handler.ListMine)
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, apperrors.ErrCodeUnauthorized, "请先登录")
			return
		}

		// 格式:Authorization: Bearer <token>
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Abort(c, apperrors.ErrCodeInvalidToken, "Token格式错误")
			return
		}
		tokenString := parts[1]

		blacklisted, err := m.sessionStore.IsInBlacklist(c.Request.Context(), tokenString)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if blacklisted {
			response.Abort(c, apperrors.ErrCodeTokenExpired, "Token已失效,请重新登录")
			return
		}

		claims, err := m.jwtManager.ParseToken(tokenString)
		if err != nil {
			response.AbortWithError(c, err) // ErrTokenExpired / ErrInvalidToken
			return
		}

		// 角色变更后旧Token携带的角色已不可信
		revokedAt, err := m.sessionStore.RevokedAt(c.Request.Context(), claims.UserID)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(revokedAt) {
			response.Abort(c, apperrors.ErrCodeTokenExpired, "账号权限已变更,请重新登录")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxName, claims.Name)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxToken, tokenString)
		c.Next()
	}
}

// RequireRole 要求指定角色,必须挂在RequireAuth之后
func RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			response.Abort(c, apperrors.ErrCodeForbidden, "无权限访问")
			return
		}
		c.Next()
	}
}

// GetUserID 从Context获取当前登录用户ID,未登录返回0
func GetUserID(c *gin.Context) uint {
	if v, ok := c.Get(ctxUserID); ok {
		if uid, ok := v.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetRole 当前登录用户角色
func GetRole(c *gin.Context) user.Role {
	return user.Role(c.GetString(ctxRole))
}

// GetAccessToken 当前请求携带的Token(登出时加入黑名单)
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}

// MustGetUserID 从Context获取用户ID(如果不存在则panic)
// 说明:用于已经通过RequireAuth中间件的Handler
func MustGetUserID(c *gin.Context) uint {
	userID := GetUserID(c)
	if userID == 0 {
		panic("user_id not found in context")
	}
	return userID
}
