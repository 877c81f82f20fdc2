package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"doctrack/internal/domain"
)

// session is the HistorySession of one update transaction. Reads lock the
// rows they return; every statement runs under a savepoint so a failed
// history write does not abort the update that follows it.
type session struct {
	tx    *sqlx.Tx
	store *DocumentStore
}

func (ss *session) FindOne(ctx context.Context, docType string, q domain.Query) (*domain.Document, error) {
	var doc *domain.Document
	err := withSavepoint(ctx, ss.tx, func() error {
		var err error
		doc, err = findOne(ctx, ss.tx, docType, q, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ss.store.loaded(doc), nil
}

func (ss *session) Find(ctx context.Context, docType string, q domain.Query) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := withSavepoint(ctx, ss.tx, func() error {
		var err error
		docs, err = find(ctx, ss.tx, docType, q, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		ss.store.loaded(d)
	}
	return docs, nil
}

func (ss *session) FindByID(ctx context.Context, docType string, id uuid.UUID) (*domain.Document, error) {
	return ss.FindOne(ctx, docType, domain.ByID(id))
}

func (ss *session) ReplaceHistory(ctx context.Context, docType string, id uuid.UUID, version int64, field string, history domain.HistoryList) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	return withSavepoint(ctx, ss.tx, func() error {
		result, err := ss.tx.ExecContext(ctx,
			`UPDATE documents
			 SET body = body || jsonb_build_object($1::text, $2::jsonb),
			     version = version + 1, updated_at = now()
			 WHERE id = $3 AND doc_type = $4 AND version = $5`,
			field, string(raw), id, docType, version)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows > 0 {
			return nil
		}

		var current int64
		err = ss.tx.GetContext(ctx, &current,
			"SELECT version FROM documents WHERE id = $1 AND doc_type = $2", id, docType)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrVersionConflict
	})
}
