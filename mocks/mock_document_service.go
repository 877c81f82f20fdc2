package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doctrack/internal/domain"
	"doctrack/internal/port"
	"doctrack/internal/service"
)

// MockDocumentService is a mock implementation of service.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, docType string, fields *domain.Update) (*domain.Document, error) {
	args := m.Called(ctx, docType, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Patch(ctx context.Context, docType string, id uuid.UUID, fields *domain.Update) (*domain.Document, error) {
	args := m.Called(ctx, docType, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) UpdateOne(ctx context.Context, input *service.QueryUpdateInput) (port.UpdateResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentService) FindOneAndUpdate(ctx context.Context, input *service.QueryUpdateInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, input *service.QueryUpdateInput) (port.UpdateResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentService) UpdateMany(ctx context.Context, input *service.QueryUpdateInput) (port.UpdateResult, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentService) History(ctx context.Context, docType string, id uuid.UUID) (domain.HistoryList, error) {
	args := m.Called(ctx, docType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.HistoryList), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	args := m.Called(ctx, docType, id)
	return args.Error(0)
}
