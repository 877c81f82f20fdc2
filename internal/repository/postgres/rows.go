package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/domain"
)

const documentColumns = "id, doc_type, body, version, created_at, updated_at"

// orderByCreation is the order in which single-document operations pick
// their target.
const orderByCreation = " ORDER BY created_at, id"

type documentRow struct {
	ID        uuid.UUID       `db:"id"`
	DocType   string          `db:"doc_type"`
	Body      json.RawMessage `db:"body"`
	Version   int64           `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (row *documentRow) toDocument() (*domain.Document, error) {
	fields := make(map[string]any)
	if len(row.Body) > 0 {
		if err := json.Unmarshal(row.Body, &fields); err != nil {
			return nil, fmt.Errorf("decoding body of %s: %w", row.ID, err)
		}
	}
	return domain.LoadDocument(row.ID, row.DocType, row.Version, row.CreatedAt, row.UpdatedAt, fields), nil
}

// whereClause translates q into a predicate over the documents table.
// Placeholders start at $1.
func whereClause(docType string, q domain.Query) (string, []any, error) {
	args := []any{docType}
	conds := []string{"doc_type = $1"}

	id, hasID, err := q.ID()
	if err != nil {
		return "", nil, err
	}
	if hasID {
		args = append(args, id)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}

	if keys := q.Fields(); len(keys) > 0 {
		filter := make(map[string]any, len(keys))
		for _, k := range keys {
			filter[k] = q[k]
		}
		raw, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
		}
		args = append(args, string(raw))
		conds = append(conds, fmt.Sprintf("body @> $%d::jsonb", len(args)))
	}

	return strings.Join(conds, " AND "), args, nil
}
