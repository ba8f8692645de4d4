package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"docflow-go/internal/config"
	"docflow-go/internal/model"
	"docflow-go/internal/repository"
	"docflow-go/pkg/log"
	"docflow-go/pkg/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxFilenameLength   = 255
	defaultSendPending  = 10
	msgNoPendingDocs    = "No documents to send to queue"
	msgPresignRequired  = "filename, uploadId, and partNumber are required"
	msgPartNumberPos    = "partNumber must be a positive integer"
	msgPartNumberMax    = "partNumber must not exceed 10000"
	msgPartsRequired    = "Parts list is required"
	msgUploadIDRequired = "filename and uploadId are required"
)

// CompleteResult 是完成上传后返回给调用方的结果。
type CompleteResult struct {
	DocumentID string
	Status     model.DocumentStatus
}

// UploadService 接口定义了分片上传编排相关的业务操作。
type UploadService interface {
	InitUpload(ctx context.Context, filename string) (string, error)
	PresignPart(ctx context.Context, filename, uploadID string, partNumber int) (string, error)
	CompleteUpload(ctx context.Context, filename, uploadID string, parts []model.UploadPart) (*CompleteResult, error)
	AbortUpload(ctx context.Context, filename, uploadID string) error
	GetUploadStatus(ctx context.Context, filename, uploadID string) (*model.UploadStatus, error)
	SendPendingDocumentsToQueue(ctx context.Context, id string) (string, error)
}

type uploadService struct {
	store       ObjectStore
	docRepo     repository.DocumentRepository
	sessionRepo repository.UploadSessionRepository
	enqueuer    *Enqueuer
	batchSize   int
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(store ObjectStore, docRepo repository.DocumentRepository, sessionRepo repository.UploadSessionRepository, enqueuer *Enqueuer, uploadCfg config.UploadConfig) UploadService {
	batchSize := uploadCfg.SendPendingBatchSize
	if batchSize <= 0 {
		batchSize = defaultSendPending
	}
	return &uploadService{
		store:       store,
		docRepo:     docRepo,
		sessionRepo: sessionRepo,
		enqueuer:    enqueuer,
		batchSize:   batchSize,
	}
}

func invalidRequest(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidRequest, msg)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrStore, op, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// InitUpload 校验文件名并在存储中创建分片上传。
func (s *uploadService) InitUpload(ctx context.Context, filename string) (uploadID string, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.InitUpload")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", invalidRequest("filename is required")
	}
	if utf8.RuneCountInString(filename) > maxFilenameLength {
		return "", invalidRequest(fmt.Sprintf("filename must be at most %d characters", maxFilenameLength))
	}
	span.SetAttributes(attribute.String("document.filename", filename))
	log.Infof("[InitUpload] 开始初始化分片上传, filename: %s", filename)

	// 已提交的文件名不允许再次上传，否则会覆盖已有对象
	if _, err := s.docRepo.FindByFilename(ctx, filename); err == nil {
		log.Warnf("[InitUpload] 文件名已存在, filename: %s", filename)
		return "", fmt.Errorf("%w: %s", model.ErrDuplicateFilename, filename)
	} else if !errors.Is(err, model.ErrDocumentNotFound) {
		log.Errorf("[InitUpload] 查询文档记录失败, filename: %s, error: %v", filename, err)
		return "", err
	}

	contentType := storage.DetectContentType(filename)
	uploadID, err = s.store.CreateMultipartUpload(ctx, filename, contentType)
	if err != nil {
		log.Errorf("[InitUpload] 创建分片上传失败, filename: %s, error: %v", filename, err)
		return "", storeError("create multipart upload", err)
	}

	session := &model.UploadSession{
		UploadID:    uploadID,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		log.Warnf("[InitUpload] 保存上传会话失败（不影响上传）, uploadId: %s, error: %v", uploadID, err)
	}

	log.Infof("[InitUpload] 分片上传已创建, filename: %s, uploadId: %s", filename, uploadID)
	return uploadID, nil
}

// PresignPart 为单个分片签发限时上传地址。
func (s *uploadService) PresignPart(ctx context.Context, filename, uploadID string, partNumber int) (url string, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.PresignPart")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" || uploadID == "" || partNumber == 0 {
		return "", invalidRequest(msgPresignRequired)
	}
	if partNumber < 1 {
		return "", invalidRequest(msgPartNumberPos)
	}
	// 必须在写 Redis bitmap 之前拦截，编号即 SETBIT 偏移量
	if partNumber > model.MaxPartNumber {
		return "", invalidRequest(msgPartNumberMax)
	}
	span.SetAttributes(attribute.String("upload.id", uploadID), attribute.Int("upload.part_number", partNumber))

	url, err = s.store.PresignUploadPart(ctx, filename, uploadID, partNumber)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPartNumber) {
			return "", invalidRequest(storage.ErrInvalidPartNumber.Error())
		}
		log.Errorf("[PresignPart] 生成分片上传地址失败, filename: %s, uploadId: %s, part: %d, error: %v", filename, uploadID, partNumber, err)
		return "", storeError("presign part", err)
	}

	if err := s.sessionRepo.MarkPartPresigned(ctx, uploadID, partNumber); err != nil {
		log.Warnf("[PresignPart] 标记分片失败（不影响上传）, uploadId: %s, part: %d, error: %v", uploadID, partNumber, err)
	}
	log.Infof("[PresignPart] 已签发分片上传地址, filename: %s, uploadId: %s, part: %d", filename, uploadID, partNumber)
	return url, nil
}

// CompleteUpload 合并分片、创建文档记录并尝试入队。入队失败只记录日志，文档保持 pending。
func (s *uploadService) CompleteUpload(ctx context.Context, filename, uploadID string, parts []model.UploadPart) (result *CompleteResult, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.CompleteUpload")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" || uploadID == "" {
		return nil, invalidRequest(msgUploadIDRequired)
	}
	if len(parts) == 0 {
		return nil, invalidRequest(msgPartsRequired)
	}
	storeParts := make([]storage.Part, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, p := range parts {
		if p.PartNumber < 1 || p.PartNumber > model.MaxPartNumber || strings.TrimSpace(p.ETag) == "" {
			return nil, invalidRequest("each part requires a PartNumber between 1 and 10000 and an ETag")
		}
		if _, dup := seen[p.PartNumber]; dup {
			return nil, invalidRequest(fmt.Sprintf("duplicate PartNumber %d", p.PartNumber))
		}
		seen[p.PartNumber] = struct{}{}
		storeParts = append(storeParts, storage.Part{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	span.SetAttributes(attribute.String("upload.id", uploadID), attribute.Int("upload.parts", len(parts)))
	log.Infof("[CompleteUpload] 开始合并分片, filename: %s, uploadId: %s, parts: %d", filename, uploadID, len(parts))

	// 同名上传可能在本次初始化之后先完成，提交前再查一次，避免覆盖已登记的对象
	if _, err := s.docRepo.FindByFilename(ctx, filename); err == nil {
		log.Warnf("[CompleteUpload] 文件名已被其他上传占用，中止本次上传, filename: %s, uploadId: %s", filename, uploadID)
		if abortErr := s.store.AbortUpload(ctx, filename, uploadID); abortErr != nil {
			log.Errorf("[CompleteUpload] 中止重复上传失败, uploadId: %s, error: %v", uploadID, abortErr)
		}
		if delErr := s.sessionRepo.Delete(ctx, uploadID); delErr != nil {
			log.Warnf("[CompleteUpload] 清理上传会话失败, uploadId: %s, error: %v", uploadID, delErr)
		}
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateFilename, filename)
	} else if !errors.Is(err, model.ErrDocumentNotFound) {
		log.Errorf("[CompleteUpload] 查询文件名失败, filename: %s, error: %v", filename, err)
		return nil, err
	}

	location, err := s.store.CompleteUpload(ctx, filename, uploadID, storeParts)
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrUploadNotFound, uploadID)
		}
		log.Errorf("[CompleteUpload] 合并分片失败, filename: %s, uploadId: %s, error: %v", filename, uploadID, err)
		return nil, storeError("complete upload", err)
	}

	info, err := s.store.InspectObject(ctx, filename)
	if err != nil {
		log.Errorf("[CompleteUpload] 对象已提交但读取元数据失败，产生孤儿对象, key: %s, error: %v", filename, err)
		return nil, storeError("inspect object", err)
	}

	doc := &model.Document{
		Filename:    filename,
		StoragePath: filename,
		Location:    location,
		ContentType: info.ContentType,
		Size:        info.Size,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		log.Errorf("[CompleteUpload] 对象已提交但创建文档记录失败，产生孤儿对象, key: %s, error: %v", filename, err)
		return nil, err
	}

	if err := s.sessionRepo.Delete(ctx, uploadID); err != nil {
		log.Warnf("[CompleteUpload] 清理上传会话失败, uploadId: %s, error: %v", uploadID, err)
	}

	status := model.StatusPending
	moved, err := s.enqueuer.Enqueue(ctx, doc)
	if err != nil {
		log.Warnf("[CompleteUpload] 入队失败，文档保持 pending 等待重新发送, documentId: %s, error: %v", doc.ID, err)
	} else if moved {
		status = model.StatusQueued
	}

	log.Infof("[CompleteUpload] 上传完成, documentId: %s, status: %s", doc.ID, status)
	return &CompleteResult{DocumentID: doc.ID, Status: status}, nil
}

// AbortUpload 中止分片上传，完成后调用是空操作。
func (s *uploadService) AbortUpload(ctx context.Context, filename, uploadID string) (err error) {
	ctx, span := tracer.Start(ctx, "UploadService.AbortUpload")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" || uploadID == "" {
		return invalidRequest(msgUploadIDRequired)
	}

	if err := s.store.AbortUpload(ctx, filename, uploadID); err != nil {
		log.Errorf("[AbortUpload] 中止上传失败, filename: %s, uploadId: %s, error: %v", filename, uploadID, err)
		return storeError("abort upload", err)
	}
	if err := s.sessionRepo.Delete(ctx, uploadID); err != nil {
		log.Warnf("[AbortUpload] 清理上传会话失败, uploadId: %s, error: %v", uploadID, err)
	}
	log.Infof("[AbortUpload] 上传已中止, filename: %s, uploadId: %s", filename, uploadID)
	return nil
}

// GetUploadStatus 返回已签发和存储已收到的分片，用于客户端续传。
func (s *uploadService) GetUploadStatus(ctx context.Context, filename, uploadID string) (status *model.UploadStatus, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.GetUploadStatus")
	defer func() { endSpan(span, err) }()

	filename = strings.TrimSpace(filename)
	if filename == "" || uploadID == "" {
		return nil, invalidRequest(msgUploadIDRequired)
	}

	presigned, err := s.sessionRepo.PresignedParts(ctx, uploadID)
	if err != nil {
		log.Warnf("[GetUploadStatus] 读取已签发分片失败, uploadId: %s, error: %v", uploadID, err)
		presigned = []int{}
	}

	parts, err := s.store.ListUploadedParts(ctx, filename, uploadID)
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrUploadNotFound, uploadID)
		}
		log.Errorf("[GetUploadStatus] 查询已上传分片失败, uploadId: %s, error: %v", uploadID, err)
		return nil, storeError("list parts", err)
	}
	received := make([]int, 0, len(parts))
	for _, p := range parts {
		received = append(received, p.PartNumber)
	}

	return &model.UploadStatus{
		UploadID:       uploadID,
		Filename:       filename,
		PresignedParts: presigned,
		ReceivedParts:  received,
	}, nil
}

// SendPendingDocumentsToQueue 重新发送 pending 文档。给定 id 时只处理该文档，
// 否则按创建时间取最多 batchSize 条。只有真正迁移到 queued 的文档才计数。
func (s *uploadService) SendPendingDocumentsToQueue(ctx context.Context, id string) (msg string, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.SendPendingDocumentsToQueue")
	defer func() { endSpan(span, err) }()

	var docs []model.Document
	id = strings.TrimSpace(id)
	if id != "" {
		doc, err := s.docRepo.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		if doc.Status != model.StatusPending {
			log.Infof("[SendPendingDocumentsToQueue] 文档不是 pending 状态，跳过, documentId: %s, status: %s", id, doc.Status)
			return msgNoPendingDocs, nil
		}
		docs = []model.Document{*doc}
	} else {
		docs, err = s.docRepo.ListByStatus(ctx, model.StatusPending, s.batchSize)
		if err != nil {
			log.Errorf("[SendPendingDocumentsToQueue] 查询 pending 文档失败, error: %v", err)
			return "", err
		}
	}

	if len(docs) == 0 {
		return msgNoPendingDocs, nil
	}

	sent, publishFailed := 0, 0
	var stateErr error
	for i := range docs {
		moved, err := s.enqueuer.Enqueue(ctx, &docs[i])
		switch {
		case errors.Is(err, model.ErrQueuePublish):
			publishFailed++
		case err != nil:
			// 任务已发出，只是状态没能推进
			stateErr = err
		case moved:
			sent++
		}
	}
	span.SetAttributes(attribute.Int("queue.sent", sent), attribute.Int("queue.failed", publishFailed))
	log.Infof("[SendPendingDocumentsToQueue] 处理完成, eligible: %d, sent: %d, publishFailed: %d", len(docs), sent, publishFailed)

	if publishFailed == len(docs) {
		return "", fmt.Errorf("%w: all %d publish attempts failed", model.ErrQueuePublish, publishFailed)
	}
	if sent == 0 {
		if stateErr != nil {
			return "", stateErr
		}
		return msgNoPendingDocs, nil
	}
	return fmt.Sprintf("%d document(s) sent to queue", sent), nil
}
