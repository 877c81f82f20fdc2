// Package tracker records a capped history of tracked field changes on
// documents, for both saves of loaded instances and query-based partial
// updates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"doctrack/internal/domain"
	"doctrack/internal/port"
)

// DefaultMaxAttempts bounds the optimistic retries of one history merge.
const DefaultMaxAttempts = 3

var errNoSession = errors.New("update context carries no store session")

// Recorder appends capped change history to the documents of one type.
type Recorder struct {
	docType     string
	cfg         Config
	reporter    Reporter
	now         func() time.Time
	maxAttempts int
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithReporter sets where recording outcomes and failures are delivered.
func WithReporter(rep Reporter) Option {
	return func(r *Recorder) {
		if rep != nil {
			r.reporter = rep
		}
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMaxAttempts sets how many times a merge is tried when the document
// version moves underneath it.
func WithMaxAttempts(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewRecorder creates a recorder for docType.
func NewRecorder(docType string, cfg Config, opts ...Option) *Recorder {
	r := &Recorder{
		docType:     docType,
		cfg:         cfg,
		reporter:    LogReporter{},
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a recorder for docType and installs it on reg: the
// history field, the pre-save hook and the pre-update hook for every
// query-based update operation.
func Register(reg port.HookRegistry, docType string, cfg Config, opts ...Option) (*Recorder, error) {
	if strings.TrimSpace(docType) == "" {
		return nil, fmt.Errorf("tracker.Register: %w: empty document type", domain.ErrInvalidConfig)
	}
	rec := NewRecorder(docType, cfg, opts...)
	if err := reg.RegisterField(docType, cfg.Name(), domain.FieldKindArray); err != nil {
		return nil, fmt.Errorf("tracker.Register: %w", err)
	}
	reg.BeforeSave(docType, rec.BeforeSave)
	reg.BeforeUpdate(docType, domain.QueryUpdateOps, rec.BeforeUpdate)
	return rec, nil
}

// DocType returns the document type the recorder serves.
func (r *Recorder) DocType() string {
	return r.docType
}

// Config returns the recorder's configuration.
func (r *Recorder) Config() Config {
	return r.cfg
}

// BeforeSave records the tracked fields modified on doc into its history
// and trims it. It performs no I/O and never fails. An unreadable stored
// history is reported and left untouched.
func (r *Recorder) BeforeSave(_ context.Context, doc *domain.Document) error {
	if doc == nil {
		return nil
	}
	name := r.cfg.Name()
	added := entriesFromDocument(r.cfg, doc, r.now())
	old, err := doc.LoadHistory(name)
	if err != nil {
		r.reporter.MergeFailed(r.docType, domain.OpSave, fmt.Errorf("document %s: %w", doc.ID, err))
		return nil
	}
	if len(added) == 0 && len(old) <= r.cfg.Limit() {
		return nil
	}

	merged, evicted := appendTrimmed(old, added, r.cfg.Limit())
	doc.SetHistory(name, merged)

	if len(added) > 0 {
		r.reporter.EntriesRecorded(r.docType, domain.OpSave, len(added))
	}
	if evicted > 0 {
		r.reporter.EntriesEvicted(r.docType, evicted)
	}
	return nil
}

// BeforeUpdate records the tracked keys of a partial update into the
// history of every targeted document. Store failures are reported and
// skipped; only cancellation of ctx is returned.
func (r *Recorder) BeforeUpdate(ctx context.Context, uc *port.UpdateContext) error {
	if uc == nil || uc.Update.IsEmpty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	added := entriesFromUpdate(r.cfg, uc.Update, r.now())
	if len(added) == 0 {
		return nil
	}
	if uc.Session == nil {
		r.reporter.MergeFailed(r.docType, uc.Op, errNoSession)
		return nil
	}

	targets, err := r.targets(ctx, uc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			r.reporter.MergeFailed(r.docType, uc.Op, err)
		}
		return nil
	}

	for _, doc := range targets {
		if err := r.merge(ctx, uc, doc, added); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.reporter.MergeFailed(r.docType, uc.Op, fmt.Errorf("document %s: %w", doc.ID, err))
		}
	}
	return nil
}

// targets loads the documents whose history must be merged: the first
// match for single-document operations, every match for updateMany.
func (r *Recorder) targets(ctx context.Context, uc *port.UpdateContext) ([]*domain.Document, error) {
	if uc.Op.IsMulti() {
		docs, err := uc.Session.Find(ctx, r.docType, uc.Query)
		if err != nil {
			return nil, fmt.Errorf("loading targets: %w", err)
		}
		return docs, nil
	}
	doc, err := uc.Session.FindOne(ctx, r.docType, uc.Query)
	if err != nil {
		return nil, fmt.Errorf("loading target: %w", err)
	}
	return []*domain.Document{doc}, nil
}

// merge writes old ++ added, trimmed, into doc's history. A version
// conflict re-reads the document and retries up to maxAttempts times.
func (r *Recorder) merge(ctx context.Context, uc *port.UpdateContext, doc *domain.Document, added domain.HistoryList) error {
	name := r.cfg.Name()
	for attempt := 1; ; attempt++ {
		old, err := doc.LoadHistory(name)
		if err != nil {
			return err
		}
		merged, evicted := appendTrimmed(old, added, r.cfg.Limit())
		err = uc.Session.ReplaceHistory(ctx, r.docType, doc.ID, doc.Version, name, merged)
		switch {
		case err == nil:
			r.reporter.EntriesRecorded(r.docType, uc.Op, len(added))
			if evicted > 0 {
				r.reporter.EntriesEvicted(r.docType, evicted)
			}
			return nil
		case errors.Is(err, domain.ErrDocumentNotFound):
			return nil
		case !errors.Is(err, domain.ErrVersionConflict):
			return err
		}

		r.reporter.MergeConflict(r.docType)
		if attempt >= r.maxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		doc, err = uc.Session.FindByID(ctx, r.docType, doc.ID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reloading after conflict: %w", err)
		}
	}
}
