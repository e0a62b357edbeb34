package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

func brandRecords() []map[string]any {
	return []map[string]any{
		{"name": "Acme Widgets", "manufacturer": "Acme Corp", "rating": 4.5},
		{"name": "Globex", "manufacturer": "Globex Inc", "rating": float64(3)},
		{"name": "Initech", "manufacturer": "Initrode"},
		{"name": "Umbrella", "manufacturer": "Umbrella Corp", "rating": 0.25, "country": "UK"},
		{"name": "Stark", "manufacturer": "Stark Industries", "rating": float64(5)},
	}
}

// expectedRows is what every tabular format must contain for brandRecords.
func expectedRows(t *testing.T, records []map[string]any) [][]string {
	t.Helper()
	cols := Columns(records)
	rows := [][]string{cols}
	for _, r := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cellText(r[c])
		}
		rows = append(rows, row)
	}
	return rows
}

func pad(rows [][]string, width int) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, width)
		copy(row, r)
		out[i] = row
	}
	return out
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "json": FormatJSON, "CSV": FormatCSV, " excel ": FormatExcel} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "brands_20261017_150405.csv", Filename("brands", FormatCSV, now))
	assert.Equal(t, "brands_20261017_150405.xlsx", Filename("brands", FormatExcel, now))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatExcel.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"country", "manufacturer", "name", "rating"}, Columns(brandRecords()))
	assert.Empty(t, Columns[map[string]any](nil))
}

func TestWriteCSVMatchesJSON(t *testing.T) {
	records := brandRecords()

	var jsonBuf bytes.Buffer
	require.NoError(t, Write(&jsonBuf, records, FormatJSON, ""))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	require.Len(t, decoded, len(records))

	var csvBuf bytes.Buffer
	require.NoError(t, Write(&csvBuf, records, FormatCSV, ""))
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, expectedRows(t, decoded), rows)
	assert.Equal(t, []string{"", "Acme Corp", "Acme Widgets", "4.5"}, rows[1])
	assert.Equal(t, []string{"", "Initrode", "Initech", ""}, rows[3], "missing fields are empty cells")
}

func TestWriteExcelMatchesJSON(t *testing.T) {
	records := brandRecords()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, FormatExcel, "Brands"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Brands"}, f.GetSheetList())
	rows, err := f.GetRows("Brands")
	require.NoError(t, err)

	want := expectedRows(t, records)
	assert.Equal(t, want, pad(rows, len(want[0])))

	cellType, err := f.GetCellType("Brands", "D2")
	require.NoError(t, err)
	assert.NotContains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, cellType, "numbers stay numeric")
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "true", cellText(true))
	assert.Equal(t, "1000000", cellText(1e6), "no exponent notation")
	assert.Equal(t, "", cellText(map[string]any{"nested": 1}))
	assert.Equal(t, "", cellText([]any{1, 2}))
	assert.Equal(t, "", cellText(nil))
	assert.Equal(t, "2026-10-17T15:04:05Z", cellText(time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC)))
}

func TestWriteRejectsTooManyRecords(t *testing.T) {
	records := make([]map[string]any, MaxRecords+1)
	for i := range records {
		records[i] = map[string]any{"n": float64(i)}
	}
	var buf bytes.Buffer
	err := Write(&buf, records, FormatCSV, "")
	assert.ErrorIs(t, err, ErrTooManyRecords)
	assert.Zero(t, buf.Len())

	require.NoError(t, Write(&buf, records[:MaxRecords], FormatCSV, ""))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write[map[string]any](&buf, nil, FormatJSON, ""))
	assert.JSONEq(t, `[]`, buf.String())
}
