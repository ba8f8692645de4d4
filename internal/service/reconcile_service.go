package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docflow-go/internal/repository"
	"docflow-go/pkg/log"
	"docflow-go/pkg/storage"
)

const staleSessionBatch = 100

// ReconcileService 对账存储与文档记录：中止过期的分片上传，发现没有文档记录的孤儿对象。
type ReconcileService interface {
	AbortStaleUploads(ctx context.Context, olderThan time.Duration) (int, error)
	SweepOrphans(ctx context.Context, grace time.Duration, remove bool) ([]string, error)
}

type reconcileService struct {
	store       ObjectStore
	docRepo     repository.DocumentRepository
	sessionRepo repository.UploadSessionRepository
	now         func() time.Time
}

// NewReconcileService 创建一个新的 ReconcileService 实例。
func NewReconcileService(store ObjectStore, docRepo repository.DocumentRepository, sessionRepo repository.UploadSessionRepository) ReconcileService {
	return &reconcileService{store: store, docRepo: docRepo, sessionRepo: sessionRepo, now: time.Now}
}

// AbortStaleUploads 中止创建时间早于 olderThan 的上传会话，返回成功中止的数量。
func (s *reconcileService) AbortStaleUploads(ctx context.Context, olderThan time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "ReconcileService.AbortStaleUploads")
	defer span.End()

	cutoff := s.now().Add(-olderThan)
	sessions, err := s.sessionRepo.ListStale(ctx, cutoff, staleSessionBatch)
	if err != nil {
		return 0, fmt.Errorf("查询过期上传会话失败: %w", err)
	}

	aborted := 0
	var errs []error
	for _, session := range sessions {
		if err := s.store.AbortUpload(ctx, session.Filename, session.UploadID); err != nil {
			log.Errorf("[AbortStaleUploads] 中止上传失败, uploadId: %s, error: %v", session.UploadID, err)
			errs = append(errs, err)
			continue
		}
		if err := s.sessionRepo.Delete(ctx, session.UploadID); err != nil {
			log.Warnf("[AbortStaleUploads] 清理上传会话失败, uploadId: %s, error: %v", session.UploadID, err)
		}
		aborted++
	}
	log.Infof("[AbortStaleUploads] 过期上传清理完成, stale: %d, aborted: %d", len(sessions), aborted)
	return aborted, errors.Join(errs...)
}

// SweepOrphans 找出存储中存在但没有文档记录、且超过宽限期的对象。remove 为 true 时删除它们。
func (s *reconcileService) SweepOrphans(ctx context.Context, grace time.Duration, remove bool) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ReconcileService.SweepOrphans")
	defer span.End()

	objects, err := s.store.ListObjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("列出存储对象失败: %w", err)
	}
	if len(objects) == 0 {
		return []string{}, nil
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	existing, err := s.docRepo.ExistingStoragePaths(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("查询文档存储路径失败: %w", err)
	}

	cutoff := s.now().Add(-grace)
	orphans := make([]string, 0)
	var errs []error
	for _, obj := range objects {
		if _, ok := existing[obj.Key]; ok {
			continue
		}
		// 宽限期内的对象可能正处于完成上传和创建记录之间
		if obj.LastModified.After(cutoff) {
			continue
		}
		orphans = append(orphans, obj.Key)
		if !remove {
			log.Warnf("[SweepOrphans] 发现孤儿对象, key: %s, size: %d", obj.Key, obj.Size)
			continue
		}
		if err := s.store.DeleteObject(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			log.Errorf("[SweepOrphans] 删除孤儿对象失败, key: %s, error: %v", obj.Key, err)
			errs = append(errs, err)
			continue
		}
		log.Infof("[SweepOrphans] 已删除孤儿对象, key: %s", obj.Key)
	}
	log.Infof("[SweepOrphans] 孤儿对象扫描完成, objects: %d, orphans: %d, removed: %t", len(objects), len(orphans), remove)
	return orphans, errors.Join(errs...)
}
