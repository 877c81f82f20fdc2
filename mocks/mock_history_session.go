package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doctrack/internal/domain"
)

// MockHistorySession is a mock implementation of port.HistorySession.
type MockHistorySession struct {
	mock.Mock
}

func (m *MockHistorySession) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	args := m.Called(ctx, docType, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockHistorySession) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	args := m.Called(ctx, docType, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockHistorySession) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockHistorySession) ReplaceHistory(ctx context.Context, docType string, id uuid.UUID, version int64, field string, history domain.HistoryList) error {
	args := m.Called(ctx, docType, id, version, field, history)
	return args.Error(0)
}
