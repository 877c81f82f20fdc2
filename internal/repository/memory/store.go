// Package memory provides an in-process DocumentStore. Hooks and the
// update they precede run under one lock, so history merges never race.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/domain"
	"doctrack/internal/hooks"
	"doctrack/internal/port"
)

// Store is a DocumentStore kept in memory.
type Store struct {
	*hooks.Registry

	mu   sync.Mutex
	docs map[string][]*domain.Document
	now  func() time.Time
}

// NewStore creates an empty in-memory DocumentStore.
func NewStore() *Store {
	return &Store{
		Registry: hooks.NewRegistry(),
		docs:     make(map[string][]*domain.Document),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ port.DocumentStore = (*Store)(nil)

func (s *Store) New(docType string) (*domain.Document, error) {
	if err := s.Require(docType); err != nil {
		return nil, err
	}
	doc := domain.NewDocument(docType)
	s.ApplyDefaults(doc)
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Require(doc.Type); err != nil {
		return err
	}
	if err := s.RunSave(ctx, doc); err != nil {
		return fmt.Errorf("memoryStore.Save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if doc.IsNew() {
		doc.MarkPersisted(1, now)
		s.docs[doc.Type] = append(s.docs[doc.Type], doc.Clone())
		return nil
	}

	idx := s.indexLocked(doc.Type, doc.ID)
	if idx < 0 {
		return domain.ErrDocumentNotFound
	}
	stored := s.docs[doc.Type][idx]
	doc.MarkPersisted(stored.Version+1, now)
	s.docs[doc.Type][idx] = doc.Clone()
	return nil
}

func (s *Store) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s}.FindOne(ctx, docType, q)
}

func (s *Store) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s}.Find(ctx, docType, q)
}

func (s *Store) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return session{s}.FindByID(ctx, docType, id)
}

func (s *Store) UpdateOne(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	updated, matched, err := s.update(ctx, domain.OpUpdateOne, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(updated))}, err
}

func (s *Store) Update(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	updated, matched, err := s.update(ctx, domain.OpUpdate, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(updated))}, err
}

func (s *Store) UpdateMany(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	updated, matched, err := s.update(ctx, domain.OpUpdateMany, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(updated))}, err
}

func (s *Store) FindOneAndUpdate(ctx context.Context, docType string, q domain.Query, u *domain.Update) (*domain.Document, error) {
	updated, matched, err := s.update(ctx, domain.OpFindOneAndUpdate, docType, q, u)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return updated[0], nil
}

func (s *Store) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(docType, id)
	if idx < 0 {
		return domain.ErrDocumentNotFound
	}
	docs := s.docs[docType]
	s.docs[docType] = append(docs[:idx:idx], docs[idx+1:]...)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

// update runs the pre-update hooks and applies u to the targets of op while
// holding the store lock.
func (s *Store) update(ctx context.Context, op domain.OperationKind, docType string, q domain.Query, u *domain.Update) ([]*domain.Document, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.Require(docType); err != nil {
		return nil, 0, err
	}
	if _, _, err := q.ID(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uc := &port.UpdateContext{DocType: docType, Op: op, Query: q, Update: u, Session: session{s}}
	if err := s.RunUpdate(ctx, uc); err != nil {
		return nil, 0, fmt.Errorf("memoryStore.%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	targets := s.matchLocked(docType, q, !op.IsMulti())
	if u.IsEmpty() {
		return nil, int64(len(targets)), nil
	}

	now := s.now()
	updated := make([]*domain.Document, 0, len(targets))
	for _, stored := range targets {
		u.Each(func(k string, v any) {
			stored.Init(k, v)
		})
		stored.Version++
		stored.UpdatedAt = now
		updated = append(updated, stored.Clone())
	}
	return updated, int64(len(targets)), nil
}

func (s *Store) indexLocked(docType string, id uuid.UUID) int {
	for i, d := range s.docs[docType] {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) matchLocked(docType string, q domain.Query, first bool) []*domain.Document {
	var out []*domain.Document
	for _, d := range s.docs[docType] {
		if !q.Matches(d) {
			continue
		}
		out = append(out, d)
		if first {
			break
		}
	}
	return out
}

// session is the HistorySession handed to hooks. Callers hold s.mu.
type session struct {
	s *Store
}

func (ss session) FindOne(_ context.Context, docType string, q domain.Query) (*domain.Document, error) {
	if _, _, err := q.ID(); err != nil {
		return nil, err
	}
	found := ss.s.matchLocked(docType, q, true)
	if len(found) == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return found[0].Clone(), nil
}

func (ss session) Find(_ context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	if _, _, err := q.ID(); err != nil {
		return nil, err
	}
	found := ss.s.matchLocked(docType, q, false)
	out := make([]*domain.Document, 0, len(found))
	for _, d := range found {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (ss session) FindByID(_ context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	idx := ss.s.indexLocked(docType, id)
	if idx < 0 {
		return nil, domain.ErrDocumentNotFound
	}
	return ss.s.docs[docType][idx].Clone(), nil
}

func (ss session) ReplaceHistory(ctx context.Context, docType string, id uuid.UUID, version int64, field string, history domain.HistoryList) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx := ss.s.indexLocked(docType, id)
	if idx < 0 {
		return domain.ErrDocumentNotFound
	}
	stored := ss.s.docs[docType][idx]
	if stored.Version != version {
		return domain.ErrVersionConflict
	}
	stored.SetHistory(field, history.Clone())
	stored.Version++
	stored.UpdatedAt = ss.s.now()
	return nil
}
