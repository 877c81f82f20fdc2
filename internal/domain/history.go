package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultHistoryName is the attribute that holds a document's history when
// no name is configured.
const DefaultHistoryName = "__updates"

// HistoryEntry records one change of a tracked field.
type HistoryEntry struct {
	Field     string    `json:"field" bson:"field"`
	ChangedTo any       `json:"changedTo" bson:"changedTo"`
	At        time.Time `json:"at" bson:"at"`
}

// NewHistoryEntry creates a history entry. Values that cannot be persisted
// are replaced by nil.
func NewHistoryEntry(field string, changedTo any, at time.Time) HistoryEntry {
	if !Representable(changedTo) {
		changedTo = nil
	}
	return HistoryEntry{
		Field:     field,
		ChangedTo: changedTo,
		At:        at,
	}
}

// HistoryList is ordered oldest first.
type HistoryList []HistoryEntry

// Clone returns a copy that shares no backing array with l.
func (l HistoryList) Clone() HistoryList {
	out := make(HistoryList, len(l))
	copy(out, l)
	return out
}

// Representable reports whether v can be stored as a history value.
func Representable(v any) bool {
	if v == nil {
		return true
	}
	_, err := json.Marshal(v)
	return err == nil
}

// DecodeHistory converts a stored history attribute into a HistoryList.
// It accepts the in-memory form as well as the generic form produced by
// decoding JSON into map[string]any.
func DecodeHistory(v any) (HistoryList, error) {
	switch h := v.(type) {
	case nil:
		return HistoryList{}, nil
	case HistoryList:
		return h, nil
	case []HistoryEntry:
		return HistoryList(h), nil
	case []any:
		out := make(HistoryList, 0, len(h))
		for i, item := range h {
			entry, err := decodeHistoryEntry(item)
			if err != nil {
				return nil, fmt.Errorf("history entry %d: %w", i, err)
			}
			out = append(out, entry)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported history value %T", v)
	}
}

func decodeHistoryEntry(item any) (HistoryEntry, error) {
	switch e := item.(type) {
	case HistoryEntry:
		return e, nil
	case map[string]any:
		field, _ := e["field"].(string)
		entry := HistoryEntry{Field: field, ChangedTo: e["changedTo"]}
		switch at := e["at"].(type) {
		case time.Time:
			entry.At = at
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, at)
			if err != nil {
				return HistoryEntry{}, fmt.Errorf("parsing at: %w", err)
			}
			entry.At = parsed
		}
		return entry, nil
	default:
		return HistoryEntry{}, fmt.Errorf("unsupported entry %T", item)
	}
}
