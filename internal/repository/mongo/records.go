package mongo

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"doctrack/internal/domain"
)

const (
	idKey        = "_id"
	versionKey   = "__v"
	createdAtKey = "_createdAt"
	updatedAtKey = "_updatedAt"
)

var creationOrder = bson.D{{Key: createdAtKey, Value: 1}, {Key: idKey, Value: 1}}

func isMetaKey(k string) bool {
	switch k {
	case idKey, versionKey, createdAtKey, updatedAtKey:
		return true
	}
	return false
}

// filterFor translates q into an equality filter. Keys are sorted so the
// filter is stable.
func filterFor(q domain.Query) (bson.D, error) {
	filter := bson.D{}
	id, hasID, err := q.ID()
	if err != nil {
		return nil, err
	}
	if hasID {
		filter = append(filter, bson.E{Key: idKey, Value: id.String()})
	}
	for _, k := range q.Fields() {
		filter = append(filter, bson.E{Key: k, Value: q[k]})
	}
	return filter, nil
}

// newRecord is the stored form of a document inserted for the first time.
func newRecord(doc *domain.Document, now time.Time) bson.D {
	fields := doc.Fields()
	rec := bson.D{
		{Key: idKey, Value: doc.ID.String()},
		{Key: versionKey, Value: int64(1)},
		{Key: createdAtKey, Value: now},
		{Key: updatedAtKey, Value: now},
	}
	for _, k := range sortedKeys(fields) {
		if isMetaKey(k) {
			continue
		}
		rec = append(rec, bson.E{Key: k, Value: fields[k]})
	}
	return rec
}

// saveUpdate writes every field of a loaded document and removes the ones
// unset since it was read.
func saveUpdate(doc *domain.Document, now time.Time) bson.D {
	fields := doc.Fields()
	set := bson.D{}
	for _, k := range sortedKeys(fields) {
		if isMetaKey(k) {
			continue
		}
		set = append(set, bson.E{Key: k, Value: fields[k]})
	}
	set = append(set, bson.E{Key: updatedAtKey, Value: now})

	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: versionKey, Value: int64(1)}}},
	}

	unset := bson.D{}
	for _, k := range doc.ModifiedFields() {
		if _, ok := fields[k]; !ok && !isMetaKey(k) {
			unset = append(unset, bson.E{Key: k, Value: ""})
		}
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

// payloadUpdate sets the keys of u in payload order.
func payloadUpdate(u *domain.Update, now time.Time) bson.D {
	set := bson.D{}
	u.Each(func(k string, v any) {
		if !isMetaKey(k) {
			set = append(set, bson.E{Key: k, Value: v})
		}
	})
	set = append(set, bson.E{Key: updatedAtKey, Value: now})
	return bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: versionKey, Value: int64(1)}}},
	}
}

func historyUpdate(field string, history domain.HistoryList, now time.Time) bson.D {
	if history == nil {
		history = domain.HistoryList{}
	}
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: field, Value: history},
			{Key: updatedAtKey, Value: now},
		}},
		{Key: "$inc", Value: bson.D{{Key: versionKey, Value: int64(1)}}},
	}
}

// fromRecord rebuilds a document from its stored form.
func fromRecord(docType string, raw bson.M) (*domain.Document, error) {
	idStr, _ := raw[idKey].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %v: %w", raw[idKey], err)
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if isMetaKey(k) {
			continue
		}
		fields[k] = normalize(v)
	}
	return domain.LoadDocument(id, docType, asInt64(raw[versionKey]),
		asTime(raw[createdAtKey]), asTime(raw[updatedAtKey]), fields), nil
}

// normalize converts driver-specific values into plain Go values so they
// compare and encode like values decoded from JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalize(e)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case bson.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	}
	return time.Time{}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
