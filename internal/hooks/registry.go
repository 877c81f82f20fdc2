// Package hooks keeps the per-document-type field declarations and
// interception points shared by every store backend.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"doctrack/internal/domain"
	"doctrack/internal/port"
)

type updateHook struct {
	ops  map[domain.OperationKind]struct{}
	hook port.UpdateHook
}

type typeHooks struct {
	fields map[string]domain.FieldKind
	save   []port.SaveHook
	update []updateHook
}

// Registry implements port.HookRegistry. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*typeHooks
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*typeHooks)}
}

func (r *Registry) entry(docType string) *typeHooks {
	t, ok := r.types[docType]
	if !ok {
		t = &typeHooks{fields: make(map[string]domain.FieldKind)}
		r.types[docType] = t
	}
	return t
}

// RegisterField declares a field on docType. A field can be declared once.
func (r *Registry) RegisterField(docType, field string, kind domain.FieldKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.entry(docType)
	if existing, ok := t.fields[field]; ok {
		return fmt.Errorf("%w: %s.%s (%s)", domain.ErrAlreadyRegistered, docType, field, existing)
	}
	t.fields[field] = kind
	return nil
}

// BeforeSave adds a hook run before every save of a docType instance.
func (r *Registry) BeforeSave(docType string, hook port.SaveHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.entry(docType)
	t.save = append(t.save, hook)
}

// BeforeUpdate adds a hook run before the listed query-based operations.
func (r *Registry) BeforeUpdate(docType string, ops []domain.OperationKind, hook port.UpdateHook) {
	set := make(map[domain.OperationKind]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.entry(docType)
	t.update = append(t.update, updateHook{ops: set, hook: hook})
}

// Registered reports whether anything was declared for docType.
func (r *Registry) Registered(docType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[docType]
	return ok
}

// Types returns the declared document types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ArrayFields returns the array fields declared on docType, sorted.
func (r *Registry) ArrayFields(docType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[docType]
	if !ok {
		return nil
	}
	var out []string
	for name, kind := range t.fields {
		if kind == domain.FieldKindArray {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ApplyDefaults gives every declared array field an empty history when the
// document does not carry one yet. Values already present are decoded into
// a domain.HistoryList.
func (r *Registry) ApplyDefaults(doc *domain.Document) {
	for _, field := range r.ArrayFields(doc.Type) {
		raw, ok := doc.Get(field)
		if !ok || raw == nil {
			doc.Init(field, domain.HistoryList{})
			continue
		}
		if list, err := domain.DecodeHistory(raw); err == nil {
			doc.Init(field, list)
		}
	}
}

// RunSave runs the save hooks of doc's type in registration order.
func (r *Registry) RunSave(ctx context.Context, doc *domain.Document) error {
	r.mu.RLock()
	var hooks []port.SaveHook
	if t, ok := r.types[doc.Type]; ok {
		hooks = append(hooks, t.save...)
	}
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// RunUpdate runs the update hooks registered for uc.Op on uc.DocType.
func (r *Registry) RunUpdate(ctx context.Context, uc *port.UpdateContext) error {
	if !uc.Op.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownOperation, uc.Op)
	}
	r.mu.RLock()
	var hooks []port.UpdateHook
	if t, ok := r.types[uc.DocType]; ok {
		for _, h := range t.update {
			if _, match := h.ops[uc.Op]; match {
				hooks = append(hooks, h.hook)
			}
		}
	}
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h(ctx, uc); err != nil {
			return err
		}
	}
	return nil
}

// Require returns domain.ErrUnknownDocumentType for undeclared types.
func (r *Registry) Require(docType string) error {
	if !r.Registered(docType) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownDocumentType, docType)
	}
	return nil
}
