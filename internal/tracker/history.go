package tracker

import (
	"time"

	"doctrack/internal/domain"
)

// IsTracked reports whether field is a member of tracked.
func IsTracked(field string, tracked map[string]struct{}) bool {
	_, ok := tracked[field]
	return ok
}

// Trim returns the last limit elements of seq. A sequence already within
// the limit is returned as is.
func Trim[T any](seq []T, limit int) []T {
	if limit <= 0 {
		return []T{}
	}
	if len(seq) <= limit {
		return seq
	}
	return seq[len(seq)-limit:]
}

// appendTrimmed concatenates old and added into a fresh list and trims it.
// It returns the list and how many entries were evicted.
func appendTrimmed(old, added domain.HistoryList, limit int) (domain.HistoryList, int) {
	merged := make(domain.HistoryList, 0, len(old)+len(added))
	merged = append(merged, old...)
	merged = append(merged, added...)
	trimmed := Trim(merged, limit)
	return trimmed, len(merged) - len(trimmed)
}

// entriesFromUpdate builds one entry per tracked key, in payload order.
func entriesFromUpdate(cfg Config, u *domain.Update, at time.Time) domain.HistoryList {
	var out domain.HistoryList
	u.Each(func(key string, value any) {
		if cfg.IsTracked(key) {
			out = append(out, domain.NewHistoryEntry(key, value, at))
		}
	})
	return out
}

// entriesFromDocument builds one entry per tracked modified field, in
// modification order. Unreadable values are recorded as "".
func entriesFromDocument(cfg Config, doc *domain.Document, at time.Time) domain.HistoryList {
	var out domain.HistoryList
	for _, field := range doc.ModifiedFields() {
		if !cfg.IsTracked(field) {
			continue
		}
		value, ok := doc.Get(field)
		if !ok {
			value = ""
		}
		out = append(out, domain.NewHistoryEntry(field, value, at))
	}
	return out
}
