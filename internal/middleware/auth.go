// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"docflow-go/pkg/log"
	"docflow-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// ClaimsKey 是用户声明在 gin 上下文中的键。
const ClaimsKey = "claims"

// bearerToken 从 Authorization 请求头中提取 token。
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return tokenString, tokenString != ""
}

// AuthMiddleware 创建一个 Gin 中间件，用于终端用户 JWT 认证。
// 令牌由外部认证服务签发，这里只做验签，并将 claims 存入上下文。
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "请求未包含授权头"})
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的授权头格式"})
			return
		}

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnf("[AuthMiddleware] token 校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的 token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ServiceAuthMiddleware 校验服务令牌，用户令牌会被拒绝。令牌缺少 required 中任一权限时返回 403。
// 服务 ID 存入上下文的 "serviceId"。
func ServiceAuthMiddleware(serviceTokens *token.JWTManager, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing service token"})
			return
		}
		claims, err := serviceTokens.VerifyServiceToken(tokenString)
		if err != nil {
			log.Warnf("[ServiceAuthMiddleware] 服务令牌校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid service token"})
			return
		}
		for _, perm := range required {
			if !claims.HasPermission(perm) {
				log.Warnf("[ServiceAuthMiddleware] 服务缺少权限, serviceId: %s, permission: %s", claims.Subject, perm)
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "missing permission " + perm})
				return
			}
		}
		c.Set("serviceId", claims.Subject)
		c.Next()
	}
}
