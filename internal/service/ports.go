// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"

	"docflow-go/internal/model"
	"docflow-go/pkg/storage"
	"docflow-go/pkg/tasks"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("docflow-go/internal/service")

// ObjectStore 是业务层依赖的对象存储网关，由 storage.MinIOGateway 实现。
type ObjectStore interface {
	Bucket() string
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int) (string, error)
	ListUploadedParts(ctx context.Context, key, uploadID string) ([]storage.Part, error)
	CompleteUpload(ctx context.Context, key, uploadID string, parts []storage.Part) (string, error)
	InspectObject(ctx context.Context, key string) (*storage.ObjectInfo, error)
	AbortUpload(ctx context.Context, key, uploadID string) error
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// QueuePublisher 发送文档处理任务，由 kafka.Producer 实现。
type QueuePublisher interface {
	PublishDocumentTask(ctx context.Context, task tasks.DocumentTask) error
}

// IndexPurger 清理文档在搜索索引中的分块，由 es.IndexPurger 实现。
type IndexPurger interface {
	DeleteByDocumentID(ctx context.Context, documentID string) (int64, error)
}

// StatusNotifier 广播文档状态变化，由 notify.Hub 实现。
type StatusNotifier interface {
	Publish(event model.StatusEvent)
}

type nopNotifier struct{}

func (nopNotifier) Publish(model.StatusEvent) {}

func notifierOrNop(n StatusNotifier) StatusNotifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
