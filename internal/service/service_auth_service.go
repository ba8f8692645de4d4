package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"docflow-go/internal/config"
	"docflow-go/internal/model"
	"docflow-go/pkg/log"
	"docflow-go/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

// ServiceToken 是签发给服务调用方的令牌。
type ServiceToken struct {
	AccessToken string
	ExpiresIn   int64
}

// ServiceAuthService 用服务 ID 和密钥换取短期服务令牌。
type ServiceAuthService interface {
	Authenticate(ctx context.Context, serviceID, serviceSecret string) (*ServiceToken, error)
}

type serviceAuthService struct {
	serviceID  string
	secretHash []byte
	tokens     *token.JWTManager
}

// NewServiceAuthService 创建服务认证服务。配置了明文 secret 时在启动时计算 bcrypt 哈希。
func NewServiceAuthService(cfg config.ServiceAuthConfig, tokens *token.JWTManager) (ServiceAuthService, error) {
	hash := []byte(cfg.SecretHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("生成服务密钥哈希失败: %w", err)
		}
	}
	return &serviceAuthService{serviceID: cfg.ServiceID, secretHash: hash, tokens: tokens}, nil
}

// Authenticate 校验服务凭据，成功时返回服务令牌。
func (s *serviceAuthService) Authenticate(ctx context.Context, serviceID, serviceSecret string) (*ServiceToken, error) {
	if serviceID == "" || serviceSecret == "" {
		return nil, invalidRequest("serviceId and serviceSecret are required")
	}
	idOK := subtle.ConstantTimeCompare([]byte(serviceID), []byte(s.serviceID)) == 1
	secretErr := bcrypt.CompareHashAndPassword(s.secretHash, []byte(serviceSecret))
	if !idOK || secretErr != nil {
		log.Warnf("[Authenticate] 服务认证失败, serviceId: %s", serviceID)
		return nil, fmt.Errorf("%w: invalid service credentials", model.ErrUnauthorized)
	}

	accessToken, err := s.tokens.GenerateServiceToken(serviceID, token.PermUpdateStatus)
	if err != nil {
		return nil, err
	}
	log.Infof("[Authenticate] 已签发服务令牌, serviceId: %s", serviceID)
	return &ServiceToken{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokens.TTL() / time.Second),
	}, nil
}
