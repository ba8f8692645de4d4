// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	ServiceAuth   ServiceAuthConfig   `mapstructure:"service_auth"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储终端用户 JWT 的校验配置，令牌由外部认证服务签发。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// ServiceAuthConfig 存储服务间调用（处理 worker 回调）的认证配置。
type ServiceAuthConfig struct {
	ServiceID   string        `mapstructure:"service_id"`
	Secret      string        `mapstructure:"secret"`
	SecretHash  string        `mapstructure:"secret_hash"`
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	AllowedIPs  []string      `mapstructure:"allowed_ips"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers      string        `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig 存储 MinIO / S3 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// UploadConfig 存储上传编排相关的配置。
type UploadConfig struct {
	SendPendingBatchSize int           `mapstructure:"send_pending_batch_size"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`
}

// ReconcileConfig 控制后台对账任务：清理过期分片上传、发现孤儿对象。
type ReconcileConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	StaleUploadAge time.Duration `mapstructure:"stale_upload_age"`
	OrphanGrace    time.Duration `mapstructure:"orphan_grace"`
	RemoveOrphans  bool          `mapstructure:"remove_orphans"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空时不启用索引清理。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// TracingConfig 存储 OpenTelemetry 链路追踪配置。Endpoint 为空时不导出。
type TracingConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
}

// setDefaults 注册所有键，使环境变量覆盖对没有出现在文件中的键也生效。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.mysql.auto_migrate", true)
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("service_auth.service_id", "rag-worker")
	v.SetDefault("service_auth.secret", "")
	v.SetDefault("service_auth.secret_hash", "")
	v.SetDefault("service_auth.token_secret", "")
	v.SetDefault("service_auth.token_ttl", time.Hour)
	v.SetDefault("service_auth.allowed_ips", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.write_timeout", 10*time.Second)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_name", "")
	v.SetDefault("minio.presign_expiry", time.Hour)
	v.SetDefault("upload.send_pending_batch_size", 10)
	v.SetDefault("upload.session_ttl", 7*24*time.Hour)
	v.SetDefault("reconcile.interval", time.Duration(0))
	v.SetDefault("reconcile.stale_upload_age", 24*time.Hour)
	v.SetDefault("reconcile.orphan_grace", time.Hour)
	v.SetDefault("reconcile.remove_orphans", false)
	v.SetDefault("elasticsearch.addresses", "")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "knowledge_base")
	v.SetDefault("tracing.service_name", "docflow-go")
	v.SetDefault("tracing.endpoint", "")
}

// Load 读取配置文件（可为空字符串，仅使用环境变量），叠加 DOCFLOW_ 前缀的环境变量并校验必填项。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init 初始化配置加载，失败时直接 panic（启动期配置错误不可恢复）。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}

// Validate 检查启动所必需的配置项，缺失时返回汇总错误，不做静默兜底。
func (c *Config) Validate() error {
	var missing []string
	required := map[string]string{
		"minio.endpoint":            c.MinIO.Endpoint,
		"minio.region":              c.MinIO.Region,
		"minio.access_key_id":       c.MinIO.AccessKeyID,
		"minio.secret_access_key":   c.MinIO.SecretAccessKey,
		"minio.bucket_name":         c.MinIO.BucketName,
		"kafka.brokers":             c.Kafka.Brokers,
		"kafka.topic":               c.Kafka.Topic,
		"jwt.secret":                c.JWT.Secret,
		"service_auth.token_secret": c.ServiceAuth.TokenSecret,
		"database.mysql.dsn":        c.Database.MySQL.DSN,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if c.ServiceAuth.Secret == "" && c.ServiceAuth.SecretHash == "" {
		missing = append(missing, "service_auth.secret|service_auth.secret_hash")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("缺少必要配置项: %s", strings.Join(missing, ", "))
	}

	if c.ServiceAuth.TokenSecret == c.JWT.Secret {
		return errors.New("service_auth.token_secret 不能与 jwt.secret 相同")
	}
	if c.Upload.SendPendingBatchSize <= 0 {
		return fmt.Errorf("upload.send_pending_batch_size 必须为正数, 当前为 %d", c.Upload.SendPendingBatchSize)
	}
	if c.MinIO.PresignExpiry <= 0 || c.MinIO.PresignExpiry > 7*24*time.Hour {
		return fmt.Errorf("minio.presign_expiry 超出范围: %s", c.MinIO.PresignExpiry)
	}
	return nil
}

// BrokerList 将逗号分隔的 broker 地址拆分为切片。
func (c KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
