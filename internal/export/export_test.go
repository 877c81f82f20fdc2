package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"doctrack/internal/domain"
	"doctrack/internal/export"
)

var at = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func sampleHistory() domain.HistoryList {
	return domain.HistoryList{
		{Field: "price", ChangedTo: 12.5, At: at},
		{Field: "name", ChangedTo: "box, large", At: at.Add(time.Minute)},
		{Field: "tags", ChangedTo: []any{"a", "b"}, At: at.Add(2 * time.Minute)},
		{Field: "stock", ChangedTo: nil, At: at.Add(3 * time.Minute)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleHistory()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, export.BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"#", "Field", "Changed To", "Changed At"}, rows[0])
	assert.Equal(t, []string{"1", "price", "12.5", "2024-05-06T07:08:09Z"}, rows[1])
	assert.Equal(t, "box, large", rows[2][2])
	assert.Equal(t, `["a","b"]`, rows[3][2])
	assert.Equal(t, "", rows[4][2])
}

func TestCSVWriter_NumbersContinueAcrossBatches(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewCSVWriter(&buf)
	history := sampleHistory()

	require.NoError(t, w.WriteEntries(history[:2]))
	require.NoError(t, w.WriteEntries(history[2:]))
	w.Flush()
	require.NoError(t, w.Error())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "3", rows[2][0])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sampleHistory()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"#", "Field", "Changed To", "Changed At"}, rows[0])
	assert.Equal(t, "price", rows[1][1])
	assert.Equal(t, "12.5", rows[1][2])
	assert.Equal(t, "4", rows[4][0])
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := export.Write(&buf, "pdf", sampleHistory())
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestWrite_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.FormatCSV, nil))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{3.0, "3"},
		{0.1, "0.1"},
		{true, "true"},
		{at, "2024-05-06T07:08:09Z"},
		{map[string]any{"w": 2.0}, `{"w":2}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, export.FormatValue(tt.in))
	}
}

func TestBuildFilename(t *testing.T) {
	assert.Equal(t, "line_item_abc_history_2024-05-06.xlsx",
		export.BuildFilename("line item", "abc", export.FormatXLSX, at))
	assert.Equal(t, "a-b_c", export.SanitizeFilename("__a-b!!c__"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", export.ContentType(export.FormatCSV))
	assert.Contains(t, export.ContentType(export.FormatXLSX), "spreadsheetml")
}
