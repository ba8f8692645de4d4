package middleware

import (
	"net/http"

	"docflow-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// EditorRoles 是允许管理文档的角色。
var EditorRoles = []string{"ADMIN", "EDITOR"}

// HasRole 判断 role 是否在 allowed 之中。
func HasRole(role string, allowed ...string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRoles 检查用户是否具有任一指定角色。
// 此中间件必须在 AuthMiddleware 之后使用。
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ClaimsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法获取用户信息"})
			return
		}
		claims, ok := value.(*token.CustomClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "用户数据类型错误"})
			return
		}

		if !HasRole(claims.Role, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足"})
			return
		}
		c.Next()
	}
}
