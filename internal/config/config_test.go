package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Database:    DatabaseConfig{MySQL: MySQLConfig{DSN: "user:pw@tcp(db:3306)/docflow"}},
		JWT:         JWTConfig{Secret: "user-secret"},
		ServiceAuth: ServiceAuthConfig{Secret: "worker", TokenSecret: "service-secret"},
		Kafka:       KafkaConfig{Brokers: "k1:9092", Topic: "document-tasks"},
		MinIO: MinIOConfig{
			Endpoint:        "minio:9000",
			Region:          "us-east-1",
			AccessKeyID:     "ak",
			SecretAccessKey: "sk",
			BucketName:      "documents",
			PresignExpiry:   time.Hour,
		},
		Upload: UploadConfig{SendPendingBatchSize: 10},
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.MinIO.Region = ""
	cfg.Kafka.Topic = " "
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.topic, minio.region")

	cfg = validConfig()
	cfg.ServiceAuth.Secret = ""
	assert.ErrorContains(t, cfg.Validate(), "service_auth.secret|service_auth.secret_hash")

	cfg.ServiceAuth.SecretHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.ServiceAuth.TokenSecret = cfg.JWT.Secret
	assert.ErrorContains(t, cfg.Validate(), "token_secret")

	cfg = validConfig()
	cfg.Upload.SendPendingBatchSize = 0
	assert.ErrorContains(t, cfg.Validate(), "send_pending_batch_size")

	cfg = validConfig()
	cfg.MinIO.PresignExpiry = 8 * 24 * time.Hour
	assert.ErrorContains(t, cfg.Validate(), "presign_expiry")
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  mysql:
    dsn: "user:pw@tcp(db:3306)/docflow"
jwt:
  secret: "user-secret"
service_auth:
  secret: "worker"
  token_secret: "service-secret"
kafka:
  brokers: "k1:9092, k2:9092"
  topic: "document-tasks"
minio:
  endpoint: "minio:9000"
  region: "us-east-1"
  access_key_id: "ak"
  secret_access_key: "sk"
  bucket_name: "documents"
`), 0o600))

	t.Setenv("DOCFLOW_MINIO_BUCKET_NAME", "override")
	t.Setenv("DOCFLOW_UPLOAD_SEND_PENDING_BATCH_SIZE", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.MinIO.BucketName)
	assert.Equal(t, 25, cfg.Upload.SendPendingBatchSize)
	assert.Equal(t, time.Hour, cfg.MinIO.PresignExpiry)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.ServiceAuth.AllowedIPs)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.endpoint")
}
