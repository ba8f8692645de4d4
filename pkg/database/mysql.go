// Package database 负责初始化 MySQL 和 Redis 连接。
package database

import (
	"fmt"
	"time"

	"docflow-go/internal/model"
	"docflow-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 初始化 MySQL 数据库连接，autoMigrate 为 true 时同步 documents 表结构。
func InitMySQL(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		// 唯一索引冲突等方言错误统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	if autoMigrate {
		if err := db.AutoMigrate(&model.Document{}); err != nil {
			return nil, fmt.Errorf("failed to migrate documents table: %w", err)
		}
	}

	log.Info("MySQL database connected successfully")
	return db, nil
}
