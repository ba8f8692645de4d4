// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeService 标记服务间调用令牌。
const TokenTypeService = "service"

// PermUpdateStatus 允许服务回写文档处理状态。
const PermUpdateStatus = "documents:update-status"

// JWTManager 负责管理 JWT 的生成和验证。
// 终端用户令牌和服务令牌使用各自独立的 JWTManager 和密钥。
type JWTManager struct {
	secretKey      []byte        // secretKey 用于签名和验证 token 的密钥
	accessTokenDur time.Duration // accessTokenDur 定义了 token 的有效期
}

// CustomClaims 是终端用户令牌中的声明，由外部认证服务签发。
type CustomClaims struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceClaims 是服务令牌中的声明，sub 为服务 ID。
type ServiceClaims struct {
	Type        string   `json:"type"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// HasPermission 判断服务令牌是否带有指定权限。
func (c *ServiceClaims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, accessTokenDur time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:      []byte(secret),
		accessTokenDur: accessTokenDur,
	}
}

// TTL 返回该管理器签发令牌的有效期。
func (m *JWTManager) TTL() time.Duration {
	return m.accessTokenDur
}

// GenerateToken 根据给定的用户信息生成一个新的 access token。
func (m *JWTManager) GenerateToken(userID uint, username, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyToken 验证终端用户 token，成功时返回 CustomClaims。
// 服务令牌不能当作用户令牌使用。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Role == "" {
		return nil, errors.New("token 缺少角色信息")
	}
	return claims, nil
}

// GenerateServiceToken 为指定服务签发一个短期服务令牌。
func (m *JWTManager) GenerateServiceToken(serviceID string, permissions ...string) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Type:        TokenTypeService,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   serviceID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyServiceToken 验证服务令牌，type 必须为 service 且带有 sub。
func (m *JWTManager) VerifyServiceToken(tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeService {
		return nil, errors.New("不是服务令牌")
	}
	if claims.Subject == "" {
		return nil, errors.New("服务令牌缺少 sub")
	}
	return claims, nil
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
