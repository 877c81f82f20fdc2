package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Update is a flat partial update: field name to new value, in the order the
// fields were given.
type Update struct {
	keys   []string
	values map[string]any
}

// NewUpdate builds an update from alternating key/value pairs.
func NewUpdate(pairs ...any) *Update {
	u := &Update{values: make(map[string]any)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		u.Set(key, pairs[i+1])
	}
	return u
}

// Set assigns a value. Re-setting a key keeps its original position.
func (u *Update) Set(key string, value any) {
	if u.values == nil {
		u.values = make(map[string]any)
	}
	if _, exists := u.values[key]; !exists {
		u.keys = append(u.keys, key)
	}
	u.values[key] = value
}

// Get returns the value for key.
func (u *Update) Get(key string) (any, bool) {
	if u == nil {
		return nil, false
	}
	v, ok := u.values[key]
	return v, ok
}

// Keys returns the keys in payload order.
func (u *Update) Keys() []string {
	if u == nil {
		return nil
	}
	out := make([]string, len(u.keys))
	copy(out, u.keys)
	return out
}

// Len returns the number of fields in the update.
func (u *Update) Len() int {
	if u == nil {
		return 0
	}
	return len(u.keys)
}

// IsEmpty reports whether the update carries no field.
func (u *Update) IsEmpty() bool {
	return u.Len() == 0
}

// Each calls fn for every field in payload order.
func (u *Update) Each(fn func(key string, value any)) {
	if u == nil {
		return
	}
	for _, k := range u.keys {
		fn(k, u.values[k])
	}
}

// MarshalJSON writes the fields in payload order.
func (u *Update) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range u.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(u.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and keeps its key order. Nested values
// are decoded generically.
func (u *Update) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*u = Update{values: make(map[string]any)}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("update must be a JSON object")
	}

	out := Update{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*u = out
	return nil
}
