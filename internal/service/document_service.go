package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docflow-go/internal/model"
	"docflow-go/internal/repository"
	"docflow-go/pkg/log"
	"docflow-go/pkg/storage"

	"go.opentelemetry.io/otel/attribute"
)

// DocumentService 接口定义了文档管理相关的业务操作。
type DocumentService interface {
	Get(ctx context.Context, id string) (*model.Document, error)
	Remove(ctx context.Context, id string) error
	ApplyWorkerStatus(ctx context.Context, id, status string, message *string) (*model.Document, error)
	EditDocument(ctx context.Context, id string, status, message *string) (*model.Document, error)
}

type documentService struct {
	store    ObjectStore
	docRepo  repository.DocumentRepository
	purger   IndexPurger
	notifier StatusNotifier
}

// NewDocumentService 创建一个新的 DocumentService 实例。purger 可以为 nil。
func NewDocumentService(store ObjectStore, docRepo repository.DocumentRepository, purger IndexPurger, notifier StatusNotifier) DocumentService {
	return &documentService{
		store:    store,
		docRepo:  docRepo,
		purger:   purger,
		notifier: notifierOrNop(notifier),
	}
}

// Get 根据 ID 获取文档。
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return s.docRepo.FindByID(ctx, id)
}

// Remove 先删除存储对象，再删除文档记录。存储删除失败时记录保持不变；
// 对象已不存在时视为目标状态已达成，继续删除记录。
func (s *documentService) Remove(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Remove")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("document.id", id))

	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteObject(ctx, doc.StoragePath); err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			log.Errorf("[Remove] 删除存储对象失败，保留文档记录, documentId: %s, key: %s, error: %v", id, doc.StoragePath, err)
			return storeError("delete object", err)
		}
		log.Warnf("[Remove] 存储对象已不存在，继续删除文档记录, documentId: %s, key: %s", id, doc.StoragePath)
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		log.Errorf("[Remove] 删除文档记录失败, documentId: %s, error: %v", id, err)
		return err
	}

	if s.purger != nil {
		if _, err := s.purger.DeleteByDocumentID(ctx, id); err != nil {
			log.Warnf("[Remove] 清理索引分块失败（不影响删除）, documentId: %s, error: %v", id, err)
		}
	}

	s.notifier.Publish(model.StatusEvent{
		Type:       model.EventDeleted,
		DocumentID: id,
		UpdatedAt:  model.LocalTime(time.Now()),
	})
	log.Infof("[Remove] 文档已删除, documentId: %s, key: %s", id, doc.StoragePath)
	return nil
}

// ApplyWorkerStatus 应用处理 worker 回报的状态，必须符合状态迁移表。
func (s *documentService) ApplyWorkerStatus(ctx context.Context, id, status string, message *string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ApplyWorkerStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("document.id", id), attribute.String("document.status", status))

	if id == "" {
		return nil, invalidRequest("documentId is required")
	}
	next, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(current.Status, next) {
		log.Warnf("[ApplyWorkerStatus] 非法状态迁移, documentId: %s, %s -> %s", id, current.Status, next)
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, current.Status, next)
	}

	doc, err = s.docRepo.Update(ctx, id, model.DocumentUpdate{Status: &next, Message: message})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(model.NewStatusChangedEvent(doc))
	log.Infof("[ApplyWorkerStatus] 状态已更新, documentId: %s, %s -> %s", id, current.Status, next)
	return doc, nil
}

// EditDocument 是 ADMIN/EDITOR 的手动修改，不检查迁移表。
func (s *documentService) EditDocument(ctx context.Context, id string, status, message *string) (*model.Document, error) {
	update := model.DocumentUpdate{Message: message}
	if status != nil {
		parsed, err := model.ParseStatus(*status)
		if err != nil {
			return nil, err
		}
		update.Status = &parsed
	}
	if update.Empty() {
		return nil, invalidRequest("status or message is required")
	}

	doc, err := s.docRepo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(model.NewStatusChangedEvent(doc))
	log.Infof("[EditDocument] 文档已手动修改, documentId: %s, status: %s", id, doc.Status)
	return doc, nil
}
