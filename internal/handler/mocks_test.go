package handler

import (
	"context"

	"docflow-go/internal/model"
	"docflow-go/internal/service"

	"github.com/stretchr/testify/mock"
)

type mockUploadService struct{ mock.Mock }

func (m *mockUploadService) InitUpload(ctx context.Context, filename string) (string, error) {
	args := m.Called(ctx, filename)
	return args.String(0), args.Error(1)
}

func (m *mockUploadService) PresignPart(ctx context.Context, filename, uploadID string, partNumber int) (string, error) {
	args := m.Called(ctx, filename, uploadID, partNumber)
	return args.String(0), args.Error(1)
}

func (m *mockUploadService) CompleteUpload(ctx context.Context, filename, uploadID string, parts []model.UploadPart) (*service.CompleteResult, error) {
	args := m.Called(ctx, filename, uploadID, parts)
	result, _ := args.Get(0).(*service.CompleteResult)
	return result, args.Error(1)
}

func (m *mockUploadService) AbortUpload(ctx context.Context, filename, uploadID string) error {
	return m.Called(ctx, filename, uploadID).Error(0)
}

func (m *mockUploadService) GetUploadStatus(ctx context.Context, filename, uploadID string) (*model.UploadStatus, error) {
	args := m.Called(ctx, filename, uploadID)
	status, _ := args.Get(0).(*model.UploadStatus)
	return status, args.Error(1)
}

func (m *mockUploadService) SendPendingDocumentsToQueue(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type mockDocumentService struct{ mock.Mock }

func (m *mockDocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *mockDocumentService) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDocumentService) ApplyWorkerStatus(ctx context.Context, id, status string, message *string) (*model.Document, error) {
	args := m.Called(ctx, id, status, message)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

func (m *mockDocumentService) EditDocument(ctx context.Context, id string, status, message *string) (*model.Document, error) {
	args := m.Called(ctx, id, status, message)
	doc, _ := args.Get(0).(*model.Document)
	return doc, args.Error(1)
}

type mockServiceAuth struct{ mock.Mock }

func (m *mockServiceAuth) Authenticate(ctx context.Context, serviceID, serviceSecret string) (*service.ServiceToken, error) {
	args := m.Called(ctx, serviceID, serviceSecret)
	tok, _ := args.Get(0).(*service.ServiceToken)
	return tok, args.Error(1)
}
