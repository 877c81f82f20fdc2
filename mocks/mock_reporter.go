package mocks

import (
	"github.com/stretchr/testify/mock"

	"doctrack/internal/domain"
)

// MockReporter is a mock implementation of tracker.Reporter.
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) EntriesRecorded(docType string, op domain.OperationKind, count int) {
	m.Called(docType, op, count)
}

func (m *MockReporter) EntriesEvicted(docType string, count int) {
	m.Called(docType, count)
}

func (m *MockReporter) MergeConflict(docType string) {
	m.Called(docType)
}

func (m *MockReporter) MergeFailed(docType string, op domain.OperationKind, err error) {
	m.Called(docType, op, err)
}
