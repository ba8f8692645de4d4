// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docflow-go/internal/model"

	mysqlerr "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry 是 MySQL 唯一键冲突的错误码。
const mysqlDuplicateEntry = 1062

// storagePathBatch 限制单条 IN 查询的参数个数，避免超过驱动的占位符上限。
const storagePathBatch = 1000

// DocumentRepository 接口定义了文档记录的持久化操作。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	FindByFilename(ctx context.Context, filename string) (*model.Document, error)
	Update(ctx context.Context, id string, update model.DocumentUpdate) (*model.Document, error)
	MarkQueued(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, status model.DocumentStatus, limit int) ([]model.Document, error)
	ExistingStoragePaths(ctx context.Context, paths []string) (map[string]struct{}, error)
}

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 插入一条新文档记录，状态强制为 pending。文件名重复时返回 model.ErrDuplicateFilename。
func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("filename = ?", doc.Filename).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", model.ErrDuplicateFilename, doc.Filename)
	}

	doc.Status = model.StatusPending
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateFilename, doc.Filename)
		}
		return err
	}
	return nil
}

// FindByID 根据 ID 查找文档。
func (r *documentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByFilename 根据文件名查找文档。
func (r *documentRepository) FindByFilename(ctx context.Context, filename string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Update 合并传入的字段，总是刷新 updated_at，返回更新后的记录。
func (r *documentRepository) Update(ctx context.Context, id string, update model.DocumentUpdate) (*model.Document, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": time.Now()}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.Message != nil {
		fields["message"] = *update.Message
	}
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, model.ErrDocumentNotFound
	}
	return r.FindByID(ctx, id)
}

// MarkQueued 仅当当前状态为 pending 时改为 queued，返回是否发生了迁移。
func (r *documentRepository) MarkQueued(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{"status": model.StatusQueued, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete 删除文档记录，影响行数为 0 时返回 model.ErrDocumentNotFound。
func (r *documentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrDocumentNotFound
	}
	return nil
}

// ListByStatus 按创建时间升序返回指定状态的文档。
func (r *documentRepository) ListByStatus(ctx context.Context, status model.DocumentStatus, limit int) ([]model.Document, error) {
	var docs []model.Document
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&docs).Error
	return docs, err
}

// ExistingStoragePaths 返回给定路径中已有文档记录的那部分。
func (r *documentRepository) ExistingStoragePaths(ctx context.Context, paths []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(paths))
	if len(paths) == 0 {
		return existing, nil
	}
	for start := 0; start < len(paths); start += storagePathBatch {
		end := start + storagePathBatch
		if end > len(paths) {
			end = len(paths)
		}
		var found []string
		if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("storage_path IN ?", paths[start:end]).Pluck("storage_path", &found).Error; err != nil {
			return nil, err
		}
		for _, p := range found {
			existing[p] = struct{}{}
		}
	}
	return existing, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqlerr.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
