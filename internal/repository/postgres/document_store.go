package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"doctrack/internal/domain"
	"doctrack/internal/hooks"
	"doctrack/internal/port"
)

// DocumentStore keeps documents of every type in one table with a JSONB
// body. Query-based updates run their hooks and the update in a single
// transaction; the targets are locked with FOR UPDATE while history is
// merged.
type DocumentStore struct {
	*hooks.Registry
	db *sqlx.DB
}

// NewDocumentStore creates a new PostgreSQL-backed DocumentStore.
func NewDocumentStore(db *sqlx.DB) *DocumentStore {
	return &DocumentStore{Registry: hooks.NewRegistry(), db: db}
}

var _ port.DocumentStore = (*DocumentStore)(nil)

func (s *DocumentStore) New(docType string) (*domain.Document, error) {
	if err := s.Require(docType); err != nil {
		return nil, err
	}
	doc := domain.NewDocument(docType)
	s.ApplyDefaults(doc)
	return doc, nil
}

func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if err := s.Require(doc.Type); err != nil {
		return err
	}
	if err := s.RunSave(ctx, doc); err != nil {
		return fmt.Errorf("documentStore.Save: %w", err)
	}

	body, err := json.Marshal(doc.Fields())
	if err != nil {
		return fmt.Errorf("documentStore.Save: encoding body: %w", err)
	}
	now := time.Now().UTC()

	if doc.IsNew() {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO documents (id, doc_type, body, version, created_at, updated_at)
			 VALUES ($1, $2, $3::jsonb, 1, $4, $4)`,
			doc.ID, doc.Type, string(body), now)
		if err != nil {
			return fmt.Errorf("documentStore.Save: %w", err)
		}
		doc.MarkPersisted(1, now)
		return nil
	}

	var version int64
	err = s.db.GetContext(ctx, &version,
		`UPDATE documents SET body = $1::jsonb, version = version + 1, updated_at = $2
		 WHERE id = $3 AND doc_type = $4 RETURNING version`,
		string(body), now, doc.ID, doc.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("documentStore.Save: %w", err)
	}
	doc.MarkPersisted(version, now)
	return nil
}

func (s *DocumentStore) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	doc, err := findOne(ctx, s.db, docType, q, false)
	if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("documentStore.FindOne: %w", err)
	}
	return s.loaded(doc), err
}

func (s *DocumentStore) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	docs, err := find(ctx, s.db, docType, q, false)
	if err != nil {
		return nil, fmt.Errorf("documentStore.Find: %w", err)
	}
	for _, d := range docs {
		s.loaded(d)
	}
	return docs, nil
}

func (s *DocumentStore) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	return s.FindOne(ctx, docType, domain.ByID(id))
}

func (s *DocumentStore) UpdateOne(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	docs, matched, err := s.update(ctx, domain.OpUpdateOne, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(docs))}, err
}

func (s *DocumentStore) Update(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	docs, matched, err := s.update(ctx, domain.OpUpdate, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(docs))}, err
}

func (s *DocumentStore) UpdateMany(ctx context.Context, docType string, q domain.Query, u *domain.Update) (port.UpdateResult, error) {
	docs, matched, err := s.update(ctx, domain.OpUpdateMany, docType, q, u)
	return port.UpdateResult{Matched: matched, Modified: int64(len(docs))}, err
}

func (s *DocumentStore) FindOneAndUpdate(ctx context.Context, docType string, q domain.Query, u *domain.Update) (*domain.Document, error) {
	docs, matched, err := s.update(ctx, domain.OpFindOneAndUpdate, docType, q, u)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, domain.ErrDocumentNotFound
	}
	if len(docs) == 0 {
		// Empty payload: nothing was written, return the match as stored.
		return s.FindOne(ctx, docType, q)
	}
	return docs[0], nil
}

func (s *DocumentStore) Delete(ctx context.Context, docType string, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = $1 AND doc_type = $2", id, docType)
	if err != nil {
		return fmt.Errorf("documentStore.Delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("documentStore.Delete: %w", err)
	}
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *DocumentStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *DocumentStore) loaded(doc *domain.Document) *domain.Document {
	if doc != nil {
		s.ApplyDefaults(doc)
	}
	return doc
}

// update runs the pre-update hooks and the write of op in one transaction.
// It returns the updated documents and the number of matches.
func (s *DocumentStore) update(ctx context.Context, op domain.OperationKind, docType string, q domain.Query, u *domain.Update) ([]*domain.Document, int64, error) {
	if err := s.Require(docType); err != nil {
		return nil, 0, err
	}
	where, args, err := whereClause(docType, q)
	if err != nil {
		return nil, 0, err
	}

	var (
		updated []*domain.Document
		matched int64
	)
	err = withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		uc := &port.UpdateContext{DocType: docType, Op: op, Query: q, Update: u, Session: &session{tx: tx, store: s}}
		if err := s.RunUpdate(ctx, uc); err != nil {
			return err
		}

		if u.IsEmpty() {
			query := "SELECT count(*) FROM documents WHERE " + where
			if !op.IsMulti() {
				query = "SELECT count(*) FROM (SELECT 1 FROM documents WHERE " + where + " LIMIT 1) m"
			}
			return tx.GetContext(ctx, &matched, query, args...)
		}

		payload, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encoding update: %w", err)
		}
		query, allArgs := updateStatement(where, args, string(payload), !op.IsMulti())

		var rows []documentRow
		if err := tx.SelectContext(ctx, &rows, query, allArgs...); err != nil {
			return err
		}
		for i := range rows {
			doc, err := rows[i].toDocument()
			if err != nil {
				return err
			}
			updated = append(updated, s.loaded(doc))
		}
		matched = int64(len(rows))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("documentStore.%s: %w", op, err)
	}
	return updated, matched, nil
}

// updateStatement merges payload into the body of the matching rows. When
// single is set only the earliest created match is written.
func updateStatement(where string, args []any, payload string, single bool) (string, []any) {
	allArgs := append(append([]any{}, args...), payload)
	set := fmt.Sprintf(
		"UPDATE documents SET body = body || $%d::jsonb, version = version + 1, updated_at = now() ",
		len(allArgs))
	returning := " RETURNING " + documentColumns
	if single {
		return set + "WHERE id = (SELECT id FROM documents WHERE " + where + orderByCreation + " LIMIT 1 FOR UPDATE)" + returning, allArgs
	}
	return set + "WHERE " + where + returning, allArgs
}

func findOne(ctx context.Context, q sqlx.QueryerContext, docType string, query domain.Query, lock bool) (*domain.Document, error) {
	where, args, err := whereClause(docType, query)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT " + documentColumns + " FROM documents WHERE " + where + orderByCreation + " LIMIT 1"
	if lock {
		stmt += " FOR UPDATE"
	}

	var row documentRow
	if err := sqlx.GetContext(ctx, q, &row, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return row.toDocument()
}

func find(ctx context.Context, q sqlx.QueryerContext, docType string, query domain.Query, lock bool) ([]*domain.Document, error) {
	where, args, err := whereClause(docType, query)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT " + documentColumns + " FROM documents WHERE " + where + orderByCreation
	if lock {
		stmt += " FOR UPDATE"
	}

	var rows []documentRow
	if err := sqlx.SelectContext(ctx, q, &rows, stmt, args...); err != nil {
		return nil, err
	}
	docs := make([]*domain.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
