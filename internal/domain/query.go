package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/google/uuid"
)

// IDField is the query key that matches a document's ID.
const IDField = "_id"

// Query is a flat equality predicate over top-level fields.
type Query map[string]any

// ByID returns a query matching a single document.
func ByID(id uuid.UUID) Query {
	return Query{IDField: id}
}

// ID returns the document ID the query is pinned to, if any.
func (q Query) ID() (uuid.UUID, bool, error) {
	raw, ok := q[IDField]
	if !ok {
		return uuid.Nil, false, nil
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, true, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, true, fmt.Errorf("%w: %s: %v", ErrInvalidQuery, IDField, err)
		}
		return id, true, nil
	default:
		return uuid.Nil, true, fmt.Errorf("%w: %s has type %T", ErrInvalidQuery, IDField, raw)
	}
}

// Fields returns the non-ID keys in sorted order.
func (q Query) Fields() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if k == IDField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether doc satisfies every equality in q.
func (q Query) Matches(doc *Document) bool {
	for k, want := range q {
		if k == IDField {
			id, _, err := q.ID()
			if err != nil || id != doc.ID {
				return false
			}
			continue
		}
		got, ok := doc.Get(k)
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares two scalar values, treating all numeric types as
// float64 so that decoded JSON numbers match Go literals.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
