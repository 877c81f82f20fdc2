package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doctrack/internal/domain"
	"doctrack/internal/port"
)

// MockDocumentStore is a mock implementation of port.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) RegisterField(docType, field string, kind domain.FieldKind) error {
	args := m.Called(docType, field, kind)
	return args.Error(0)
}

func (m *MockDocumentStore) BeforeSave(docType string, hook port.SaveHook) {
	m.Called(docType, hook)
}

func (m *MockDocumentStore) BeforeUpdate(docType string, ops []domain.OperationKind, hook port.UpdateHook) {
	m.Called(docType, ops, hook)
}

func (m *MockDocumentStore) Registered(docType string) bool {
	args := m.Called(docType)
	return args.Bool(0)
}

func (m *MockDocumentStore) New(docType string) (*domain.Document, error) {
	args := m.Called(docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	args := m.Called(ctx, docType, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	args := m.Called(ctx, docType, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docType, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) UpdateOne(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	args := m.Called(ctx, docType, q, u)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentStore) FindOneAndUpdate(ctx context.Context, docType string, q domain.Query, u *domain.Update) (*domain.Document, error) {
	args := m.Called(ctx, docType, q, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	args := m.Called(ctx, docType, q, u)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentStore) UpdateMany(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	args := m.Called(ctx, docType, q, u)
	return args.Get(0).(port.UpdateResult), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	args := m.Called(ctx, docType, id)
	return args.Error(0)
}

func (m *MockDocumentStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDocumentStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
