package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Document is an in-memory instance of a stored document. It tracks which
// top-level fields were modified since it was loaded or constructed.
type Document struct {
	ID        uuid.UUID
	Type      string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	fields   map[string]any
	modified []string
	isNew    bool
}

// NewDocument creates an unsaved document of the given type.
func NewDocument(docType string) *Document {
	return &Document{
		ID:     uuid.New(),
		Type:   docType,
		fields: make(map[string]any),
		isNew:  true,
	}
}

// LoadDocument rebuilds a persisted document. No field is marked modified.
func LoadDocument(id uuid.UUID, docType string, version int64, createdAt, updatedAt time.Time, fields map[string]any) *Document {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Document{
		ID:        id,
		Type:      docType,
		Version:   version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		fields:    fields,
	}
}

// IsNew reports whether the document has never been persisted.
func (d *Document) IsNew() bool {
	return d.isNew
}

// Get returns the current value of a field.
func (d *Document) Get(field string) (any, bool) {
	v, ok := d.fields[field]
	return v, ok
}

// Set assigns a field and marks it modified.
func (d *Document) Set(field string, value any) {
	d.fields[field] = value
	d.markModified(field)
}

// Unset removes a field and marks it modified.
func (d *Document) Unset(field string) {
	delete(d.fields, field)
	d.markModified(field)
}

// Init assigns a field without marking it modified. Stores use it to apply
// registered defaults.
func (d *Document) Init(field string, value any) {
	d.fields[field] = value
}

// ModifiedFields returns the modified field names in first-modification order.
func (d *Document) ModifiedFields() []string {
	out := make([]string, len(d.modified))
	copy(out, d.modified)
	return out
}

// IsModified reports whether field was modified since the last save.
func (d *Document) IsModified(field string) bool {
	for _, f := range d.modified {
		if f == field {
			return true
		}
	}
	return false
}

// Fields returns a shallow copy of the document's fields.
func (d *Document) Fields() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}

// LoadHistory decodes the history stored under name. A missing attribute
// yields an empty list; a value that is not a history list fails with
// ErrCorruptHistory.
func (d *Document) LoadHistory(name string) (HistoryList, error) {
	list, err := DecodeHistory(d.fields[name])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptHistory, name, err)
	}
	return list, nil
}

// SetHistory replaces the history stored under name. The attribute is not
// marked modified.
func (d *Document) SetHistory(name string, list HistoryList) {
	if list == nil {
		list = HistoryList{}
	}
	d.fields[name] = list
}

// MarkPersisted clears the modified set after a successful write.
func (d *Document) MarkPersisted(version int64, at time.Time) {
	if d.isNew {
		d.CreatedAt = at
	}
	d.UpdatedAt = at
	d.Version = version
	d.modified = nil
	d.isNew = false
}

// Clone returns a deep copy of the document's bookkeeping and a shallow copy
// of its field values. History lists are copied.
func (d *Document) Clone() *Document {
	fields := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		if h, ok := v.(HistoryList); ok {
			v = h.Clone()
		}
		fields[k] = v
	}
	return &Document{
		ID:        d.ID,
		Type:      d.Type,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		fields:    fields,
		modified:  d.ModifiedFields(),
		isNew:     d.isNew,
	}
}

// reservedFields are written by the stores or by MarshalJSON.
var reservedFields = map[string]struct{}{
	IDField:      {},
	"_type":      {},
	"_version":   {},
	"_createdAt": {},
	"_updatedAt": {},
	"__v":        {},
}

// IsReservedField reports whether name is managed by the stores rather than
// by callers.
func IsReservedField(name string) bool {
	_, ok := reservedFields[name]
	return ok
}

// MarshalJSON flattens the document fields next to its metadata.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := d.Fields()
	out[IDField] = d.ID
	out["_type"] = d.Type
	out["_version"] = d.Version
	out["_createdAt"] = d.CreatedAt
	out["_updatedAt"] = d.UpdatedAt
	return json.Marshal(out)
}

func (d *Document) markModified(field string) {
	if d.IsModified(field) {
		return
	}
	d.modified = append(d.modified, field)
}
