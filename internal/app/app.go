// Package app 负责按配置装配所有组件，供 HTTP 服务和运维命令共用。
package app

import (
	"context"
	"fmt"
	"time"

	"docflow-go/internal/config"
	"docflow-go/internal/handler"
	"docflow-go/internal/repository"
	"docflow-go/internal/service"
	"docflow-go/pkg/database"
	"docflow-go/pkg/es"
	"docflow-go/pkg/kafka"
	"docflow-go/pkg/log"
	"docflow-go/pkg/notify"
	"docflow-go/pkg/storage"
	"docflow-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// App 持有装配好的服务以及需要在退出时释放的资源。
type App struct {
	Config    config.Config
	Upload    service.UploadService
	Documents service.DocumentService
	Reconcile service.ReconcileService
	Auth      service.ServiceAuthService
	Hub       *notify.Hub

	UserTokens    *token.JWTManager
	ServiceTokens *token.JWTManager

	db       *gorm.DB
	rdb      *redis.Client
	producer *kafka.Producer
}

// Build 按依赖顺序初始化存储、队列、仓库和服务。任一步失败都会释放已创建的资源。
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	if err != nil {
		return nil, err
	}
	a.rdb, err = database.InitRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		return nil, err
	}
	gateway, err := storage.NewMinIOGateway(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}
	a.producer = kafka.NewProducer(cfg.Kafka)

	var purger service.IndexPurger
	esPurger, err := es.NewIndexPurger(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if esPurger != nil {
		purger = esPurger
	}

	docRepo := repository.NewDocumentRepository(a.db)
	sessionRepo := repository.NewUploadSessionRepository(a.rdb, cfg.Upload.SessionTTL)

	a.Hub = notify.NewHub()
	a.UserTokens = token.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour)
	a.ServiceTokens = token.NewJWTManager(cfg.ServiceAuth.TokenSecret, cfg.ServiceAuth.TokenTTL)

	enqueuer := service.NewEnqueuer(docRepo, a.producer, a.Hub, gateway.Bucket())
	a.Upload = service.NewUploadService(gateway, docRepo, sessionRepo, enqueuer, cfg.Upload)
	a.Documents = service.NewDocumentService(gateway, docRepo, purger, a.Hub)
	a.Reconcile = service.NewReconcileService(gateway, docRepo, sessionRepo)
	a.Auth, err = service.NewServiceAuthService(cfg.ServiceAuth, a.ServiceTokens)
	if err != nil {
		return nil, fmt.Errorf("初始化服务认证失败: %w", err)
	}
	return a, nil
}

// Router 构建 HTTP 路由。
func (a *App) Router() *gin.Engine {
	return handler.NewRouter(handler.RouterDeps{
		Upload:        handler.NewUploadHandler(a.Upload),
		Document:      handler.NewDocumentHandler(a.Documents),
		Service:       handler.NewServiceHandler(a.Auth, a.Documents),
		StatusStream:  handler.NewStatusStreamHandler(a.Hub, a.UserTokens),
		UserTokens:    a.UserTokens,
		ServiceTokens: a.ServiceTokens,
		AllowedIPs:    a.Config.ServiceAuth.AllowedIPs,
	})
}

// RunReconciler 按 reconcile.interval 周期执行对账，直到 ctx 结束。interval 为 0 时直接返回。
func (a *App) RunReconciler(ctx context.Context) {
	rc := a.Config.Reconcile
	if rc.Interval <= 0 {
		log.Info("reconcile.interval 未配置，后台对账已关闭")
		return
	}
	ticker := time.NewTicker(rc.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.Reconcile.AbortStaleUploads(ctx, rc.StaleUploadAge); err != nil {
				log.Errorf("[RunReconciler] 清理过期上传失败: %v", err)
			} else if n > 0 {
				log.Infof("[RunReconciler] 已中止 %d 个过期上传", n)
			}
			if _, err := a.Reconcile.SweepOrphans(ctx, rc.OrphanGrace, rc.RemoveOrphans); err != nil {
				log.Errorf("[RunReconciler] 孤儿对象扫描失败: %v", err)
			}
		}
	}
}

// Close 释放 Kafka、Redis 和 MySQL 连接。
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			log.Warnf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Warnf("关闭 Redis 连接失败: %v", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
