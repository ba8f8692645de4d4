package service

import (
	"context"
	"testing"
	"time"

	"docflow-go/internal/config"
	"docflow-go/internal/model"
	"docflow-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticate_PlainSecret(t *testing.T) {
	tokens := token.NewJWTManager("service-signing-key", time.Hour)
	svc, err := NewServiceAuthService(config.ServiceAuthConfig{ServiceID: "rag-worker", Secret: "s3cret"}, tokens)
	require.NoError(t, err)

	tok, err := svc.Authenticate(context.Background(), "rag-worker", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	claims, err := tokens.VerifyServiceToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "rag-worker", claims.Subject)
}

func TestAuthenticate_HashedSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := token.NewJWTManager("service-signing-key", time.Hour)
	svc, err := NewServiceAuthService(config.ServiceAuthConfig{ServiceID: "rag-worker", SecretHash: string(hash)}, tokens)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "rag-worker", "s3cret")
	assert.NoError(t, err)
}

func TestAuthenticate_Rejections(t *testing.T) {
	tokens := token.NewJWTManager("service-signing-key", time.Hour)
	svc, err := NewServiceAuthService(config.ServiceAuthConfig{ServiceID: "rag-worker", Secret: "s3cret"}, tokens)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Authenticate(ctx, "rag-worker", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "other", "s3cret")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}
