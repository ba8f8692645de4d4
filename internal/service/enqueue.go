package service

import (
	"context"
	"fmt"

	"docflow-go/internal/model"
	"docflow-go/internal/repository"
	"docflow-go/pkg/log"
	"docflow-go/pkg/tasks"
)

// Enqueuer 把发布任务和 pending → queued 迁移配对执行。两步之间不是事务，
// 发布成功但迁移前崩溃的文档留在 pending，可以通过 send-pending 重新发送。
type Enqueuer struct {
	docRepo   repository.DocumentRepository
	publisher QueuePublisher
	notifier  StatusNotifier
	bucket    string
}

// NewEnqueuer 创建一个新的 Enqueuer。
func NewEnqueuer(docRepo repository.DocumentRepository, publisher QueuePublisher, notifier StatusNotifier, bucket string) *Enqueuer {
	return &Enqueuer{
		docRepo:   docRepo,
		publisher: publisher,
		notifier:  notifierOrNop(notifier),
		bucket:    bucket,
	}
}

// Enqueue 发布文档任务，成功后做条件迁移 pending → queued。
// 发布失败返回 model.ErrQueuePublish，文档保持 pending。返回值表示是否真正发生了迁移。
func (e *Enqueuer) Enqueue(ctx context.Context, doc *model.Document) (bool, error) {
	task := tasks.DocumentTask{
		DocumentID: doc.ID,
		Key:        doc.StoragePath,
		Bucket:     e.bucket,
		MimeType:   doc.ContentType,
		Size:       doc.Size,
		S3Path:     doc.Location,
	}
	if err := e.publisher.PublishDocumentTask(ctx, task); err != nil {
		log.Errorf("[Enqueue] 发送任务失败，文档保持 pending: documentId=%s, error: %v", doc.ID, err)
		return false, fmt.Errorf("%w: %v", model.ErrQueuePublish, err)
	}

	moved, err := e.docRepo.MarkQueued(ctx, doc.ID)
	if err != nil {
		log.Errorf("[Enqueue] 任务已发送但更新状态失败: documentId=%s, error: %v", doc.ID, err)
		return false, err
	}
	if !moved {
		log.Warnf("[Enqueue] 文档已不在 pending 状态，跳过迁移: documentId=%s", doc.ID)
		return false, nil
	}

	updated, err := e.docRepo.FindByID(ctx, doc.ID)
	if err == nil {
		e.notifier.Publish(model.NewStatusChangedEvent(updated))
	}
	log.Infof("[Enqueue] 文档已入队: documentId=%s", doc.ID)
	return true, nil
}
