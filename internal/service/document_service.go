package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"doctrack/internal/domain"
	"doctrack/internal/port"
)

// QueryUpdateInput is the DTO for query-based partial updates.
type QueryUpdateInput struct {
	DocType string
	Filter  domain.Query
	Update  *domain.Update
}

// DocumentService defines the document management contract.
type DocumentService interface {
	Create(ctx context.Context, docType string, fields *domain.Update) (*domain.Document, error)
	Get(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error)
	Patch(ctx context.Context, docType string, id uuid.UUID, fields *domain.Update) (*domain.Document, error)
	UpdateOne(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, input *QueryUpdateInput) (*domain.Document, error)
	Update(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error)
	UpdateMany(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error)
	History(ctx context.Context, docType string, id uuid.UUID) (domain.HistoryList, error)
	Delete(ctx context.Context, docType string, id uuid.UUID) error
}

type documentService struct {
	store        port.DocumentStore
	historyNames map[string]string
}

// NewDocumentService creates a new DocumentService implementation.
// historyNames maps each tracked document type to its history attribute.
func NewDocumentService(store port.DocumentStore, historyNames map[string]string) DocumentService {
	names := make(map[string]string, len(historyNames))
	for k, v := range historyNames {
		names[k] = v
	}
	return &documentService{store: store, historyNames: names}
}

func (s *documentService) Create(ctx context.Context, docType string, fields *domain.Update) (*domain.Document, error) {
	if err := s.checkFields(docType, fields); err != nil {
		return nil, err
	}
	doc, err := s.store.New(docType)
	if err != nil {
		return nil, err
	}
	fields.Each(func(k string, v any) {
		doc.Set(k, v)
	})
	if err := s.store.Save(ctx, doc); err != nil {
		log.Printf("documentService.Create: failed to save %s document: %v", docType, err)
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	if err := s.checkType(docType); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, docType, id)
}

// Patch loads the document, applies fields and saves it. A null value
// removes the field.
func (s *documentService) Patch(ctx context.Context, docType string, id uuid.UUID, fields *domain.Update) (*domain.Document, error) {
	if err := s.checkFields(docType, fields); err != nil {
		return nil, err
	}
	doc, err := s.store.FindByID(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	fields.Each(func(k string, v any) {
		if v == nil {
			doc.Unset(k)
			return
		}
		doc.Set(k, v)
	})
	if err := s.store.Save(ctx, doc); err != nil {
		log.Printf("documentService.Patch: failed to save %s document %s: %v", docType, id, err)
		return nil, err
	}
	return doc, nil
}

func (s *documentService) UpdateOne(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error) {
	if err := s.checkQueryUpdate(input); err != nil {
		return port.UpdateResult{}, err
	}
	return s.store.UpdateOne(ctx, input.DocType, input.Filter, input.Update)
}

func (s *documentService) FindOneAndUpdate(ctx context.Context, input *QueryUpdateInput) (*domain.Document, error) {
	if err := s.checkQueryUpdate(input); err != nil {
		return nil, err
	}
	return s.store.FindOneAndUpdate(ctx, input.DocType, input.Filter, input.Update)
}

func (s *documentService) Update(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error) {
	if err := s.checkQueryUpdate(input); err != nil {
		return port.UpdateResult{}, err
	}
	return s.store.Update(ctx, input.DocType, input.Filter, input.Update)
}

func (s *documentService) UpdateMany(ctx context.Context, input *QueryUpdateInput) (port.UpdateResult, error) {
	if err := s.checkQueryUpdate(input); err != nil {
		return port.UpdateResult{}, err
	}
	return s.store.UpdateMany(ctx, input.DocType, input.Filter, input.Update)
}

func (s *documentService) History(ctx context.Context, docType string, id uuid.UUID) (domain.HistoryList, error) {
	name, ok := s.historyNames[docType]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not tracked", domain.ErrUnknownDocumentType, docType)
	}
	doc, err := s.store.FindByID(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	history, err := doc.LoadHistory(name)
	if err != nil {
		log.Printf("documentService.History: %s document %s: %v", docType, id, err)
		return nil, err
	}
	return history, nil
}

func (s *documentService) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	if err := s.checkType(docType); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, docType, id); err != nil {
		return err
	}
	log.Printf("documentService.Delete: deleted %s document %s", docType, id)
	return nil
}

func (s *documentService) checkType(docType string) error {
	if !s.store.Registered(docType) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDocumentType, docType)
	}
	return nil
}

// checkFields rejects empty payloads and keys that would overwrite store
// metadata or the history attribute.
func (s *documentService) checkFields(docType string, fields *domain.Update) error {
	if err := s.checkType(docType); err != nil {
		return err
	}
	if fields.IsEmpty() {
		return domain.ErrEmptyUpdate
	}
	history := s.historyNames[docType]
	for _, k := range fields.Keys() {
		switch {
		case k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, "."):
			return fmt.Errorf("%w: %q", domain.ErrInvalidFieldName, k)
		case domain.IsReservedField(k) || (history != "" && k == history):
			return fmt.Errorf("%w: %s", domain.ErrReservedField, k)
		}
	}
	return nil
}

func (s *documentService) checkQueryUpdate(input *QueryUpdateInput) error {
	if err := s.checkFields(input.DocType, input.Update); err != nil {
		return err
	}
	for k := range input.Filter {
		if k == "" || strings.HasPrefix(k, "$") {
			return fmt.Errorf("%w: unsupported key %q", domain.ErrInvalidQuery, k)
		}
	}
	if _, _, err := input.Filter.ID(); err != nil {
		return err
	}
	return nil
}
