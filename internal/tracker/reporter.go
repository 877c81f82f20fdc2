package tracker

import (
	"log"

	"doctrack/internal/domain"
)

// Reporter receives the outcome of recorder invocations. Tracking failures
// are delivered here instead of failing the caller's write.
type Reporter interface {
	EntriesRecorded(docType string, op domain.OperationKind, count int)
	EntriesEvicted(docType string, count int)
	MergeConflict(docType string)
	MergeFailed(docType string, op domain.OperationKind, err error)
}

// LogReporter writes merge failures to the standard logger and ignores the
// other events.
type LogReporter struct{}

// EntriesRecorded is a no-op.
func (LogReporter) EntriesRecorded(string, domain.OperationKind, int) {}

// EntriesEvicted is a no-op.
func (LogReporter) EntriesEvicted(string, int) {}

// MergeConflict is a no-op.
func (LogReporter) MergeConflict(string) {}

// MergeFailed logs the skipped merge.
func (LogReporter) MergeFailed(docType string, op domain.OperationKind, err error) {
	log.Printf("tracker.%s: history merge skipped for %s: %v", op, docType, err)
}
