package service

import (
	"context"
	"sync"
	"time"

	"docflow-go/internal/model"
	"docflow-go/pkg/storage"
	"docflow-go/pkg/tasks"

	"github.com/stretchr/testify/mock"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Bucket() string { return "documents" }

func (m *mockStore) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStore) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int) (string, error) {
	args := m.Called(ctx, key, uploadID, partNumber)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ListUploadedParts(ctx context.Context, key, uploadID string) ([]storage.Part, error) {
	args := m.Called(ctx, key, uploadID)
	parts, _ := args.Get(0).([]storage.Part)
	return parts, args.Error(1)
}

func (m *mockStore) CompleteUpload(ctx context.Context, key, uploadID string, parts []storage.Part) (string, error) {
	args := m.Called(ctx, key, uploadID, parts)
	return args.String(0), args.Error(1)
}

func (m *mockStore) InspectObject(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	info, _ := args.Get(0).(*storage.ObjectInfo)
	return info, args.Error(1)
}

func (m *mockStore) AbortUpload(ctx context.Context, key, uploadID string) error {
	return m.Called(ctx, key, uploadID).Error(0)
}

func (m *mockStore) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	objects, _ := args.Get(0).([]storage.ObjectInfo)
	return objects, args.Error(1)
}

type mockDocRepo struct{ mock.Mock }

func (m *mockDocRepo) Create(ctx context.Context, doc *model.Document) error {
	args := m.Called(ctx, doc)
	if args.Error(0) == nil && doc.ID == "" {
		doc.ID = "doc-1"
		doc.Status = model.StatusPending
	}
	return args.Error(0)
}

func (m *mockDocRepo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *mockDocRepo) FindByFilename(ctx context.Context, filename string) (*model.Document, error) {
	args := m.Called(ctx, filename)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *mockDocRepo) Update(ctx context.Context, id string, update model.DocumentUpdate) (*model.Document, error) {
	args := m.Called(ctx, id, update)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *mockDocRepo) MarkQueued(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockDocRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDocRepo) ListByStatus(ctx context.Context, status model.DocumentStatus, limit int) ([]model.Document, error) {
	args := m.Called(ctx, status, limit)
	docs, _ := args.Get(0).([]model.Document)
	return docs, args.Error(1)
}

func (m *mockDocRepo) ExistingStoragePaths(ctx context.Context, paths []string) (map[string]struct{}, error) {
	args := m.Called(ctx, paths)
	existing, _ := args.Get(0).(map[string]struct{})
	return existing, args.Error(1)
}

type mockSessionRepo struct{ mock.Mock }

func (m *mockSessionRepo) Save(ctx context.Context, session *model.UploadSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) Get(ctx context.Context, uploadID string) (*model.UploadSession, error) {
	args := m.Called(ctx, uploadID)
	session, _ := args.Get(0).(*model.UploadSession)
	return session, args.Error(1)
}

func (m *mockSessionRepo) MarkPartPresigned(ctx context.Context, uploadID string, partNumber int) error {
	return m.Called(ctx, uploadID, partNumber).Error(0)
}

func (m *mockSessionRepo) PresignedParts(ctx context.Context, uploadID string) ([]int, error) {
	args := m.Called(ctx, uploadID)
	parts, _ := args.Get(0).([]int)
	return parts, args.Error(1)
}

func (m *mockSessionRepo) Delete(ctx context.Context, uploadID string) error {
	return m.Called(ctx, uploadID).Error(0)
}

func (m *mockSessionRepo) ListStale(ctx context.Context, before time.Time, limit int64) ([]model.UploadSession, error) {
	args := m.Called(ctx, before, limit)
	sessions, _ := args.Get(0).([]model.UploadSession)
	return sessions, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishDocumentTask(ctx context.Context, task tasks.DocumentTask) error {
	return m.Called(ctx, task).Error(0)
}

type mockPurger struct{ mock.Mock }

func (m *mockPurger) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	args := m.Called(ctx, documentID)
	return int64(args.Int(0)), args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (n *recordingNotifier) Publish(event model.StatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []model.StatusEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.StatusEvent(nil), n.events...)
}
