// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentStatus 表示文档在处理流水线中的状态。
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// transitions 是 worker 回调允许的状态迁移表。completed 和 failed 对回调而言是终态。
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:    {StatusQueued, StatusProcessing, StatusCompleted, StatusFailed},
	StatusQueued:     {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// ParseStatus 将字符串解析为合法的 DocumentStatus。
func ParseStatus(s string) (DocumentStatus, error) {
	status := DocumentStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrInvalidRequest, s)
	}
	return status, nil
}

// Valid 判断状态是否属于已知枚举。
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition 判断回调能否把文档从 from 迁移到 to。相同状态总是允许（用于刷新 message）。
func CanTransition(from, to DocumentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Document 定义了 documents 表的 ORM 模型。
// 只有在对象存储确认对象完整写入之后才会创建记录。
type Document struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Filename    string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"filename"`
	StoragePath string         `gorm:"type:varchar(512);not null;index" json:"storagePath"`
	Location    string         `gorm:"type:varchar(1024)" json:"location"`
	ContentType string         `gorm:"type:varchar(255)" json:"contentType"`
	Size        int64          `gorm:"not null;default:0" json:"size"`
	Status      DocumentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Message     *string        `gorm:"type:text" json:"message,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// BeforeCreate 在插入前分配 UUID。
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DocumentUpdate 描述一次部分更新，nil 字段保持不变。
type DocumentUpdate struct {
	Status  *DocumentStatus
	Message *string
}

// Empty 表示没有任何字段需要更新。
func (u DocumentUpdate) Empty() bool {
	return u.Status == nil && u.Message == nil
}
