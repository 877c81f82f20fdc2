// Package export renders a document's change history as downloadable files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"doctrack/internal/domain"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row shared by every format.
var columns = []string{
	"#",
	"Field",
	"Changed To",
	"Changed At",
}

// CSVWriter wraps csv.Writer for exporting history entries.
type CSVWriter struct {
	csv *csv.Writer
	n   int
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteEntries writes one row per entry, oldest first. Row numbers continue
// across calls.
func (w *CSVWriter) WriteEntries(entries domain.HistoryList) error {
	for i := range entries {
		w.n++
		if err := w.csv.Write(entryToRow(w.n, &entries[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, the header and every entry to out.
func WriteCSV(out io.Writer, entries domain.HistoryList) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewCSVWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteEntries(entries); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func entryToRow(n int, e *domain.HistoryEntry) []string {
	return []string{
		strconv.Itoa(n),
		e.Field,
		FormatValue(e.ChangedTo),
		formatTime(e.At),
	}
}

// FormatValue renders a recorded value as a cell. Strings are written as
// is, nil as an empty cell and everything else as JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return formatTime(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition and object
// keys. Replaces non-alphanumeric chars (except - _) with _, collapses
// consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for an export.
// Format: {doc_type}_{id}_history_{YYYY-MM-DD}.{format}
func BuildFilename(docType, id, format string, at time.Time) string {
	return fmt.Sprintf("%s_%s_history_%s.%s",
		SanitizeFilename(docType), SanitizeFilename(id), at.Format("2006-01-02"), format)
}
