package port

import (
	"context"

	"github.com/google/uuid"

	"doctrack/internal/domain"
)

// SaveHook runs before a document instance is persisted. It may mutate doc.
type SaveHook func(ctx context.Context, doc *domain.Document) error

// UpdateHook runs before a query-based partial update is applied. A non-nil
// error aborts the update.
type UpdateHook func(ctx context.Context, uc *UpdateContext) error

// UpdateContext describes a pending query-based partial update.
type UpdateContext struct {
	DocType string
	Op      domain.OperationKind
	Query   domain.Query
	Update  *domain.Update
	// Session reads and writes through the same store, and the same
	// transaction where the backend has one, as the pending update.
	Session HistorySession
}

// HookRegistry defines the contract for declaring fields and interception
// points on a document type.
type HookRegistry interface {
	RegisterField(docType, field string, kind domain.FieldKind) error
	BeforeSave(docType string, hook SaveHook)
	BeforeUpdate(docType string, ops []domain.OperationKind, hook UpdateHook)
	Registered(docType string) bool
}

// HistorySession defines the store access a pre-update hook needs.
type HistorySession interface {
	// FindOne returns the first document matching q in creation order, or
	// domain.ErrDocumentNotFound.
	FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error)
	Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error)
	FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error)
	// ReplaceHistory overwrites the history attribute if the stored version
	// still equals version, and bumps the version. It returns
	// domain.ErrVersionConflict when the version moved and
	// domain.ErrDocumentNotFound when the document is gone.
	ReplaceHistory(ctx context.Context, docType string, id uuid.UUID, version int64, field string, history domain.HistoryList) error
}

// UpdateResult reports how many documents an update touched.
type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// DocumentStore defines the contract for document persistence with
// interception points.
type DocumentStore interface {
	HookRegistry

	// New returns an unsaved document with registered defaults applied.
	New(docType string) (*domain.Document, error)
	// Save runs the save hooks and persists the whole document.
	Save(ctx context.Context, doc *domain.Document) error

	FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error)
	Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error)
	FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error)

	UpdateOne(ctx context.Context, docType string, q domain.Query, u *domain.Update) (UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, docType string, q domain.Query, u *domain.Update) (*domain.Document, error)
	Update(ctx context.Context, docType string, q domain.Query, u *domain.Update) (UpdateResult, error)
	UpdateMany(ctx context.Context, docType string, q domain.Query, u *domain.Update) (UpdateResult, error)

	Delete(ctx context.Context, docType string, id uuid.UUID) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
